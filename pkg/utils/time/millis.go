// ABOUTME: Epoch millisecond helpers for registry timestamps
// ABOUTME: Registries persist times as integer milliseconds since the Unix epoch

package time

import (
	"strings"
	"time"
)

// Clock returns the current time. Registries take one so tests can pin time.
type Clock func() time.Time

// System is the wall clock
var System Clock = time.Now

// NowMillis returns the current time of c in epoch milliseconds
func (c Clock) NowMillis() int64 {
	if c == nil {
		return time.Now().UnixMilli()
	}
	return c().UnixMilli()
}

// FromMillis converts epoch milliseconds to a time; 0 yields the zero time
func FromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// FormatMillis renders epoch milliseconds as RFC3339, or "never" for 0
func FormatMillis(ms int64) string {
	if ms == 0 {
		return "never"
	}
	return FromMillis(ms).UTC().Format(time.RFC3339)
}

var timeFormats = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseFlexibleTime attempts to parse a time string using various formats
func ParseFlexibleTime(timeStr string) time.Time {
	timeStr = strings.TrimSpace(timeStr)
	if timeStr == "" {
		return time.Time{}
	}
	for _, format := range timeFormats {
		if t, err := time.Parse(format, timeStr); err == nil {
			return t
		}
	}
	return time.Time{}
}
