package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	DataDir       string `json:"data_dir"`
	LogLevel      string `json:"log_level"`
	MaxConcurrent int    `json:"max_concurrent"`
	Telegram      struct {
		Token   string `json:"token"`
		AdminID int64  `json:"admin_id"`
	} `json:"telegram"`
	Database struct {
		Driver string `json:"driver"`
		DSN    string `json:"dsn"`
	} `json:"database"`
	History struct {
		Limit     int `json:"limit"`
		ChunkSize int `json:"chunk_size"`
	} `json:"history"`
	HTTP struct {
		Enabled bool   `json:"enabled"`
		Listen  string `json:"listen"`
		Token   string `json:"token"`
	} `json:"http"`
	Digest struct {
		Schedule string `json:"schedule"`
	} `json:"digest"`
	Slack struct {
		BotToken  string `json:"bot_token"`
		ChannelID string `json:"channel_id"`
	} `json:"slack"`
	Discord struct {
		BotToken  string `json:"bot_token"`
		ChannelID string `json:"channel_id"`
	} `json:"discord"`
	NATS struct {
		URL     string `json:"url"`
		Subject string `json:"subject"`
	} `json:"nats"`
}

// DefaultAdminID leaves the bot without an administrator: no sender id is 0,
// so admin commands stay disabled until telegram.admin_id is configured.
const DefaultAdminID = 0

func defaults() *Config {
	cfg := &Config{
		DataDir:       filepath.Join(os.Getenv("HOME"), ".incidentbot"),
		MaxConcurrent: 1,
	}
	cfg.LogLevel = "info"
	cfg.Telegram.AdminID = DefaultAdminID
	cfg.Database.Driver = "sqlite"
	cfg.History.Limit = 20
	cfg.History.ChunkSize = 5
	cfg.HTTP.Listen = "127.0.0.1:8080"
	cfg.NATS.Subject = "incidents.created"
	return cfg
}

func Load(path string) (*Config, error) {
	cfg := defaults()

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values from the environment (highest precedence).
func applyEnv(cfg *Config) error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("INCIDENTBOT_ADMIN_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("INCIDENTBOT_ADMIN_ID: %w", err)
		}
		cfg.Telegram.AdminID = id
	}
	if v := os.Getenv("INCIDENTBOT_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("INCIDENTBOT_HTTP_TOKEN"); v != "" {
		cfg.HTTP.Token = v
	}
	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" {
		cfg.Slack.BotToken = v
	}
	if v := os.Getenv("DISCORD_BOT_TOKEN"); v != "" {
		cfg.Discord.BotToken = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	return nil
}

// Save writes cfg to path atomically, creating the directory if needed.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ToMap converts cfg to a nested map through its JSON form.
func ToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListValues returns cfg as dot-separated keys, optionally masking secrets.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	flat := Flatten(m)
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

// GetValue returns the value stored in the config file under key. The file
// is created with defaults if missing. Environment overrides are not applied.
func GetValue(path, key string) (any, error) {
	if _, err := Load(path); err != nil {
		return nil, err
	}
	raw, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	v, ok := Flatten(raw)[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// SetValue stores value under key in an existing config file. Values that
// parse as JSON (numbers, booleans) are stored typed; anything else is
// stored as a string. Keys not in Config are kept as written.
func SetValue(path, key, value string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	raw, err := readRaw(path)
	if err != nil {
		return err
	}

	flat := Flatten(raw)
	flat[key] = parseValue(value)
	data, err := encodeChecked(flat)
	if err != nil {
		// A typed value may belong in a string field, e.g. a numeric token.
		flat[key] = value
		if data, err = encodeChecked(flat); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
	}
	return writeAtomic(path, data)
}

// encodeChecked marshals flat back into nested JSON and verifies it still
// decodes into Config.
func encodeChecked(flat map[string]any) ([]byte, error) {
	data, err := json.MarshalIndent(Unflatten(flat), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	if err := json.Unmarshal(data, defaults()); err != nil {
		return nil, err
	}
	return data, nil
}

// readRaw decodes the config file without the Config schema so unknown keys
// survive. Numbers are kept as json.Number to preserve large ids.
func readRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if m == nil {
		m = make(map[string]any)
	}
	return m, nil
}

func parseValue(s string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	switch v.(type) {
	case json.Number, bool:
		return v
	}
	return s
}
