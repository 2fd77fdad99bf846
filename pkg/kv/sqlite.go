package kv

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLite implements Store over the kv table created by pkg/database.
type SQLite struct {
	DB *sql.DB
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{DB: db}
}

func (s *SQLite) Get(ctx context.Context, key string) (string, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key)

	var value string
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("kv get %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLite) Put(ctx context.Context, key, value string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("kv put %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) PutIfAbsent(ctx context.Context, key, value string) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
		INSERT OR IGNORE INTO kv (key, value) VALUES (?, ?)
	`, key, value)
	if err != nil {
		return false, fmt.Errorf("kv put-if-absent %q: %w", key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("kv put-if-absent %q: rows affected: %w", key, err)
	}
	return n > 0, nil
}
