package core

import (
	"strings"
	"time"
)

const Day = 24 * time.Hour

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// FormatTimestamp renders t as an ISO-8601 UTC timestamp with second precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// ParseTimestamp parses a stored or supplied timestamp. Values without a zone are UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseExpiration normalizes a requested expiration. A date-only value means
// the end of that day in UTC. Unparsable input yields false.
func ParseExpiration(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if len(s) == 10 {
		s += " 23:59:59 UTC"
	}
	t, ok := ParseTimestamp(s)
	if !ok {
		return "", false
	}
	return FormatTimestamp(t), true
}

// DaysUntil is floor((t - now) / 1 day); negative once t has passed.
func DaysUntil(t, now time.Time) int {
	d := t.Sub(now)
	days := int(d / Day)
	if d < 0 && d%Day != 0 {
		days--
	}
	return days
}
