package discord

import (
	"fmt"
	"time"
)

// FormatTimestamp renders t as the ISO 8601 value Discord expects in embeds.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// RelativeTime renders t as a Discord timestamp tag shown relative to the
// reader ("in 3 days").
func RelativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}
