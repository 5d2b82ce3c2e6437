// ABOUTME: SQLite-backed key-value store for registry snapshots and asset bodies
// ABOUTME: Provides a file-based store that survives application restarts

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const defaultTable = "assets"

// Store implements interfaces.Store using SQLite
type Store struct {
	db       *sql.DB
	queries  *Queries
	filePath string
	logger   Logger
	now      func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithLogger reports suspicious keys to logger
func WithLogger(logger Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore opens (or creates) the database at filePath
func NewStore(filePath string, opts ...Option) (*Store, error) {
	if filePath == "" {
		filePath = "assets.db"
	}

	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	queries, _ := NewQueries(defaultTable)
	s := &Store{
		db:       db,
		queries:  queries,
		filePath: filePath,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := db.Exec(queries.Schema()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Get retrieves the values stored under keys
func (s *Store) Get(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	args, err := s.keyArgs(keys)
	if err != nil || len(args) == 0 {
		return out, err
	}

	rows, err := s.db.QueryContext(ctx, s.queries.Select(len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}

// Set stores every key/value pair in one transaction
func (s *Store) Set(ctx context.Context, items map[string][]byte) error {
	if len(items) == 0 {
		return nil
	}

	keys := make([]string, 0, len(items))
	for key, value := range items {
		if err := ValidateKey(key, s.logger); err != nil {
			return err
		}
		if err := ValidateValue(value); err != nil {
			return err
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.queries.Upsert())
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := s.now().UnixMilli()
	for _, key := range keys {
		value := items[key]
		if value == nil {
			value = []byte{}
		}
		if _, err := stmt.ExecContext(ctx, key, value, now); err != nil {
			return fmt.Errorf("failed to write key: %w", err)
		}
	}
	return tx.Commit()
}

// Remove deletes the given keys
func (s *Store) Remove(ctx context.Context, keys []string) error {
	args, err := s.keyArgs(keys)
	if err != nil || len(args) == 0 {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.queries.Delete(len(args)), args...); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Stats returns store statistics
func (s *Store) Stats() (map[string]interface{}, error) {
	var count int
	if err := s.db.QueryRow(s.queries.Count()).Scan(&count); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"entries":   count,
		"file_path": s.filePath,
	}, nil
}

func (s *Store) keyArgs(keys []string) ([]interface{}, error) {
	args := make([]interface{}, 0, len(keys))
	for _, key := range keys {
		if err := ValidateKey(key, s.logger); err != nil {
			return nil, err
		}
		args = append(args, key)
	}
	return args, nil
}
