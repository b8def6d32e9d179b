package kv

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLite implements Store on a single SQLite table.
type SQLite struct {
	db     *sqlx.DB
	closed atomic.Bool
}

// NewSQLite opens a SQLite database and runs migrations.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// One connection keeps writers from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) Get(ctx context.Context, key string, dest any) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}

	var raw string
	err := s.db.GetContext(ctx, &raw, "SELECT value FROM kv WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get key %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("decode key %s: %w", key, err)
	}
	return true, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value any) error {
	return s.SetMany(ctx, map[string]any{key: value})
}

// SetMany writes every entry inside one transaction.
func (s *SQLite) SetMany(ctx context.Context, entries map[string]any) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if len(entries) == 0 {
		return nil
	}

	encoded := make(map[string]string, len(entries))
	for key, value := range entries {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode key %s: %w", key, err)
		}
		encoded[key] = string(data)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin kv transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, key := range sortedKeys(encoded) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at
		`, key, encoded[key], now)
		if err != nil {
			return fmt.Errorf("set key %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit kv transaction: %w", err)
	}
	return nil
}

func (s *SQLite) Remove(ctx context.Context, keys ...string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if len(keys) == 0 {
		return nil
	}

	query, args, err := sqlx.In("DELETE FROM kv WHERE key IN (?)", keys)
	if err != nil {
		return fmt.Errorf("build remove query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("remove keys: %w", err)
	}
	return nil
}

func (s *SQLite) Usage(ctx context.Context, keys ...string) (map[string]int64, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	usage := make(map[string]int64, len(keys))
	if len(keys) == 0 {
		return usage, nil
	}

	query, args, err := sqlx.In("SELECT key, LENGTH(CAST(value AS BLOB)) AS size FROM kv WHERE key IN (?)", keys)
	if err != nil {
		return nil, fmt.Errorf("build usage query: %w", err)
	}

	var rows []struct {
		Key  string `db:"key"`
		Size int64  `db:"size"`
	}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("kv usage: %w", err)
	}
	for _, r := range rows {
		usage[r.Key] = r.Size
	}
	return usage, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
