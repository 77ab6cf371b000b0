// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is a SQLite implementation of the [Store] interface.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSQLiteStore opens (creating, if needed) the SQLite database at path.
// Expired entries are removed on open and then periodically until ctx is
// canceled.
func NewSQLiteStore(ctx context.Context, path string, ttl time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			last_accessed INTEGER NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	s := &SQLiteStore{db: db, ttl: ttl}
	s.deleteExpired(ctx)
	go s.sweep(ctx)

	return s, nil
}

func (s *SQLiteStore) sweep(ctx context.Context) {
	interval := min(s.ttl/2, 24*time.Hour)
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.deleteExpired(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *SQLiteStore) deadline() int64 { return time.Now().Add(-s.ttl).UnixNano() }

func (s *SQLiteStore) deleteExpired(ctx context.Context) {
	s.db.ExecContext(ctx, `DELETE FROM kv WHERE last_accessed < ?;`, s.deadline())
}

// Get retrieves a value for a given key.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var data []byte
	if err := tx.QueryRowContext(ctx, `
		SELECT value FROM kv WHERE key = ? AND last_accessed >= ?;
	`, key, s.deadline()).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE kv SET last_accessed = ? WHERE key = ?;
	`, time.Now().UnixNano(), key); err != nil {
		return nil, err
	}

	return data, tx.Commit()
}

// Set stores a value for a given key.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, last_accessed)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE
		SET value = excluded.value, last_accessed = excluded.last_accessed;
	`, key, value, time.Now().UnixNano())
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }
