// Package models defines the wire types and display helpers for the docchat client.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// timestampLayouts lists the formats accepted from the backend, most specific first.
// The backend serializes naive datetimes without a zone, so those are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp is a time.Time that decodes leniently.
// Unparseable or null values decode to the zero time instead of failing the
// enclosing collection.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses s using the accepted layouts.
func ParseTimestamp(s string) (Timestamp, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, true
		}
	}
	return Timestamp{}, false
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		t.Time = time.Time{}
		return nil
	}
	parsed, _ := ParseTimestamp(s)
	*t = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// RelativeTime formats t relative to now the way the chat sidebar does:
// "Just now", "3h ago", "Yesterday", or the calendar date.
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	hours := int(now.Sub(t).Hours())
	switch {
	case hours < 1:
		return "Just now"
	case hours < 24:
		return fmt.Sprintf("%dh ago", hours)
	case hours < 48:
		return "Yesterday"
	default:
		return t.Local().Format("2006-01-02")
	}
}

// Truncate cuts s to at most n runes, appending "..." when anything was cut.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
