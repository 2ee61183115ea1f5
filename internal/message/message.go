// Package message renders incident records as chat text.
package message

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/user/incidentbot/internal/types"
)

// MaxTelegramMessage is the Telegram limit for a single text message, in
// UTF-16 code units.
const MaxTelegramMessage = 4096

// DefaultChunkSize is the number of history blocks sent per message.
const DefaultChunkSize = 5

const createdAtLayout = "2006-01-02 15:04:05"

// Notification renders the broadcast text for one incident.
func Notification(inc *types.Incident) string {
	return "📌 Оповещение о происшествии\n\n" +
		fmt.Sprintf("📅 Дата: %s\n\n", inc.Date) +
		fmt.Sprintf("🕒 Время: %s (местное)\n\n", inc.Time) +
		fmt.Sprintf("🛤 Перегон/станция: %s\n\n", inc.Segment) +
		fmt.Sprintf("🔢 Путь: %s\n\n", inc.Track) +
		fmt.Sprintf("📍 Км ПК: %s\n\n", inc.KmPk) +
		fmt.Sprintf("⚠️ Вид происшествия: %s\n\n", inc.IncidentType) +
		fmt.Sprintf("📝 Описание: %s\n\n", inc.Description) +
		fmt.Sprintf("👨‍💼 Председатель комиссии по расследованию: %s", inc.Chairman)
}

// HistoryBlock renders the short form of an incident used by /history.
// The description is left out to keep blocks compact.
func HistoryBlock(inc *types.Incident) string {
	return fmt.Sprintf("#%d (%s)\n", inc.ID, inc.CreatedAt.UTC().Format(createdAtLayout)) +
		fmt.Sprintf("📅 %s  🕒 %s\n", inc.Date, inc.Time) +
		fmt.Sprintf("🛤 %s  🔢 %s\n", inc.Segment, inc.Track) +
		fmt.Sprintf("📍 %s  ⚠️ %s\n", inc.KmPk, inc.IncidentType) +
		fmt.Sprintf("👨‍💼 %s\n", inc.Chairman) +
		"—\n"
}

// History renders incidents as blocks grouped size-per-message.
func History(incidents []*types.Incident, size int) []string {
	blocks := make([]string, 0, len(incidents))
	for _, inc := range incidents {
		blocks = append(blocks, HistoryBlock(inc))
	}
	return Chunk(blocks, size)
}

// Chunk joins blocks into groups of at most size, separated by a newline.
// A non-positive size falls back to DefaultChunkSize.
func Chunk(blocks []string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var out []string
	for i := 0; i < len(blocks); i += size {
		end := i + size
		if end > len(blocks) {
			end = len(blocks)
		}
		out = append(out, strings.Join(blocks[i:end], "\n"))
	}
	return out
}

// Split breaks text into parts of at most max UTF-16 code units, the unit
// Telegram counts its message limit in. Runes are never cut in half.
func Split(text string, max int) []string {
	if max <= 0 || utf16Len(text) <= max {
		return []string{text}
	}
	var parts []string
	start, units := 0, 0
	for i, r := range text {
		w := utf16.RuneLen(r)
		if w < 0 {
			w = 1
		}
		if units+w > max {
			parts = append(parts, text[start:i])
			start, units = i, 0
		}
		units += w
	}
	return append(parts, text[start:])
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}
