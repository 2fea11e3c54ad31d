package model

import (
	"strconv"
	"strings"
	"time"
)

// Timestamp layouts accepted at the persistence boundary, tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp converts a boundary timestamp string to epoch milliseconds.
// It accepts RFC3339 strings, a few common SQL layouts, and raw epoch values
// (interpreted as seconds below 1e12, milliseconds otherwise). The second
// return is false when the input is not parseable.
func ParseTimestamp(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 1e12 {
			return n * 1000, true
		}
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f < 1e12 {
			return int64(f * 1000), true
		}
		return int64(f), true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

// FormatTimestamp renders epoch milliseconds as the ISO8601 form used by
// timeline event rows.
func FormatTimestamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}
