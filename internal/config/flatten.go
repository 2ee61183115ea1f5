package config

import (
	"sort"
	"strings"
)

// secretKeys are masked by `config list` and never echoed by `config set`.
var secretKeys = map[string]bool{
	"telegram.token":    true,
	"database.dsn":      true,
	"http.token":        true,
	"slack.bot_token":   true,
	"discord.bot_token": true,
}

// IsSecretKey reports whether key holds a credential.
func IsSecretKey(key string) bool {
	return secretKeys[key]
}

// Keys returns every dot-separated key of the Config schema, sorted.
func Keys() []string {
	m, err := ToMap(defaults())
	if err != nil {
		return nil
	}
	return SortedKeys(Flatten(m))
}

// IsKnownKey reports whether key names a Config field.
func IsKnownKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// SortedKeys returns the keys of a flat map in lexical order.
func SortedKeys(flat map[string]any) []string {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flatten turns nested sections into dot-separated keys, e.g.
// {"database": {"driver": "sqlite"}} becomes {"database.driver": "sqlite"}.
// Empty sections produce no keys.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any)
	var walk func(prefix string, section map[string]any)
	walk = func(prefix string, section map[string]any) {
		for k, v := range section {
			if prefix != "" {
				k = prefix + "." + k
			}
			if child, ok := v.(map[string]any); ok {
				walk(k, child)
				continue
			}
			out[k] = v
		}
	}
	walk("", m)
	return out
}

// Unflatten is the inverse of Flatten. A key that collides with a scalar
// at a shorter path replaces that scalar with a section.
func Unflatten(flat map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range flat {
		section := out
		parts := strings.Split(k, ".")
		for _, part := range parts[:len(parts)-1] {
			child, ok := section[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				section[part] = child
			}
			section = child
		}
		section[parts[len(parts)-1]] = v
	}
	return out
}

// Mask hides all but the last four characters of a secret.
func Mask(s string) string {
	if len(s) <= 4 {
		return "***" + s
	}
	return "***" + s[len(s)-4:]
}

// MaskSecrets returns a copy of flat with non-empty secret values masked.
func MaskSecrets(flat map[string]any) map[string]any {
	out := make(map[string]any, len(flat))
	for k, v := range flat {
		if s, ok := v.(string); ok && s != "" && secretKeys[k] {
			v = Mask(s)
		}
		out[k] = v
	}
	return out
}
