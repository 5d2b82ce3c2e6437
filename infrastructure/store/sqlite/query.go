// ABOUTME: Parameterized SQL statements for the SQLite key-value store
// ABOUTME: Validates table names and keys so user input never reaches the query text

package sqlite

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Logger is the subset of interfaces.Logger used for key validation warnings
type Logger interface {
	Warn(msg string, fields map[string]interface{})
}

var (
	safeNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	maxKeyLength    = 512
	maxValueLength  = 64 * 1024 * 1024
)

// suspicious key fragments are logged, parameterization keeps them inert
var suspiciousPatterns = []string{"--", "/*", "*/", ";", "'", "\"", "\\", "\n", "\r"}

// Queries holds the statements for one key-value table
type Queries struct {
	table string
}

// NewQueries returns the statements for table
func NewQueries(table string) (*Queries, error) {
	if err := validateName(table); err != nil {
		return nil, err
	}
	return &Queries{table: table}, nil
}

// Schema creates the table when missing
func (q *Queries) Schema() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`, q.table)
}

// Select reads n keys
func (q *Queries) Select(n int) string {
	return fmt.Sprintf("SELECT key, value FROM %s WHERE key IN (%s)", q.table, placeholders(n))
}

// Upsert writes one key
func (q *Queries) Upsert() string {
	return fmt.Sprintf("INSERT OR REPLACE INTO %s (key, value, updated_at) VALUES (?, ?, ?)", q.table)
}

// Delete removes n keys
func (q *Queries) Delete(n int) string {
	return fmt.Sprintf("DELETE FROM %s WHERE key IN (%s)", q.table, placeholders(n))
}

// Count returns the number of rows
func (q *Queries) Count() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", q.table)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func validateName(name string) error {
	if name == "" {
		return errors.New("name cannot be empty")
	}
	if !safeNamePattern.MatchString(name) {
		return fmt.Errorf("invalid name: %s (only alphanumeric and underscore allowed)", name)
	}
	if len(name) > 64 {
		return fmt.Errorf("name too long: %s (max 64 characters)", name)
	}
	return nil
}

// ValidateKey rejects keys the store cannot hold and warns about odd ones
func ValidateKey(key string, logger Logger) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	if len(key) > maxKeyLength {
		return fmt.Errorf("key too long: max %d characters", maxKeyLength)
	}
	if strings.Contains(key, "\x00") {
		return errors.New("key cannot contain null bytes")
	}

	if logger == nil {
		return nil
	}
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(key, pattern) {
			logger.Warn("Suspicious pattern detected in store key", map[string]interface{}{
				"pattern":     pattern,
				"key_length":  len(key),
				"key_preview": truncateKey(key),
			})
		}
	}
	return nil
}

// ValidateValue rejects oversized values
func ValidateValue(value []byte) error {
	if len(value) > maxValueLength {
		return fmt.Errorf("value too large: max %d bytes", maxValueLength)
	}
	return nil
}

func truncateKey(key string) string {
	const maxPreview = 50
	if len(key) <= maxPreview {
		return key
	}
	return key[:maxPreview] + "..."
}
