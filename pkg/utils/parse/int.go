// ABOUTME: Utility functions for parsing numbers and flags from strings
// ABOUTME: Provides safe parsing with default values

package parse

import (
	"strconv"
	"strings"
)

// IntOrZero safely parses an integer from a string, returning 0 if parsing fails
func IntOrZero(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

// IntOrDefault parses an integer, returning fallback if parsing fails
func IntOrDefault(s string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return v
	}
	return fallback
}

// BoolOrDefault parses a boolean, returning fallback if parsing fails
func BoolOrDefault(s string, fallback bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
		return v
	}
	return fallback
}

// List splits a comma separated value, dropping empty items
func List(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
