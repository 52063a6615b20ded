package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

var errNotLoaded = errors.New("storage not loaded")

func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	if s.db == nil {
		return "", false, errNotLoaded
	}

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv_items WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) SetItem(ctx context.Context, key, value string) error {
	return s.SetItems(ctx, map[string]string{key: value})
}

// SetItems writes every pair in one transaction
func (s *Store) SetItems(ctx context.Context, items map[string]string) error {
	if s.db == nil {
		return errNotLoaded
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for key, value := range items {
		_, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO kv_items (key, value, updated_at) VALUES (?, ?, ?)",
			key, value, now)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit items: %w", err)
	}
	return nil
}

func (s *Store) RemoveItems(ctx context.Context, keys ...string) error {
	if s.db == nil {
		return errNotLoaded
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, "DELETE FROM kv_items WHERE key = ?", key); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to remove %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit removal: %w", err)
	}
	return nil
}

// Keys lists stored keys starting with prefix, in lexical order
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	if s.db == nil {
		return nil, errNotLoaded
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM kv_items WHERE substr(key, 1, ?) = ? ORDER BY key",
		utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
