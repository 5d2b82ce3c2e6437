// ABOUTME: Duration parsing utilities for configuration values
// ABOUTME: Accepts plain seconds, Go duration strings and HH:MM:SS forms

package duration

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Parse converts a duration string to a time.Duration. A bare integer is
// read as seconds; "1h30m" style and HH:MM:SS / MM:SS are also accepted.
func Parse(durationStr string) (time.Duration, error) {
	durationStr = strings.TrimSpace(durationStr)
	if durationStr == "" {
		return 0, fmt.Errorf("empty duration")
	}

	if secs, err := strconv.Atoi(durationStr); err == nil {
		return time.Duration(secs) * time.Second, nil
	}

	if dur, err := time.ParseDuration(durationStr); err == nil {
		return dur, nil
	}

	parts := strings.Split(durationStr, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid duration %q", durationStr)
	}
	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", durationStr)
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, nil
}

// ParseOrDefault parses durationStr, returning fallback when it is empty or invalid
func ParseOrDefault(durationStr string, fallback time.Duration) time.Duration {
	if d, err := Parse(durationStr); err == nil {
		return d
	}
	return fallback
}

// HumanReadable converts a duration to a human-readable format
func HumanReadable(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%d seconds", seconds)
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60

	parts := []string{}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d hour", hours))
		if hours > 1 {
			parts[len(parts)-1] += "s"
		}
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d minute", minutes))
		if minutes > 1 {
			parts[len(parts)-1] += "s"
		}
	}

	return strings.Join(parts, " ")
}
