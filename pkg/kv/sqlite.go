package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const (
	getSlotStatement = `
	SELECT value, revision
	FROM slots
	WHERE key = ? AND deleted = 0
	`

	// A tombstone counts as absent but keeps counting revisions.
	insertSlotStatement = `
	INSERT INTO slots (key, value, revision, deleted)
	VALUES (?, ?, 1, 0)
	ON CONFLICT(key) DO UPDATE
	SET value = excluded.value, revision = slots.revision + 1, deleted = 0, updated_at = unixepoch()
	WHERE slots.deleted = 1
	RETURNING revision
	`

	updateSlotStatement = `
	UPDATE slots
	SET value = ?, revision = revision + 1, updated_at = unixepoch()
	WHERE key = ? AND revision = ? AND deleted = 0
	RETURNING revision
	`

	deleteSlotsStatement = `
	UPDATE slots
	SET value = x'', revision = revision + 1, deleted = 1, updated_at = unixepoch()
	WHERE deleted = 0 AND key IN (%s)
	`
)

// SQLiteStore keeps slots in the slots table created by db.InitializeSchema.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// DB returns the underlying *sql.DB.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Item, error) {
	var item Item
	err := s.db.QueryRowContext(ctx, getSlotStatement, key).Scan(&item.Value, &item.Revision)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, fmt.Errorf("failed to read slot '%s': %w", key, err)
	}
	return item, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte, revision int64) (int64, error) {
	var row *sql.Row
	if revision == 0 {
		row = s.db.QueryRowContext(ctx, insertSlotStatement, key, value)
	} else {
		row = s.db.QueryRowContext(ctx, updateSlotStatement, value, key, revision)
	}

	var next int64
	if err := row.Scan(&next); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrConflict
		}
		return 0, fmt.Errorf("failed to write slot '%s': %w", key, err)
	}
	return next, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(keys)-1) + "?"
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(deleteSlotsStatement, placeholders), args...)
	if err != nil {
		return fmt.Errorf("failed to delete slots %v: %w", keys, err)
	}
	return nil
}

// Close checkpoints the WAL (when enabled) and closes the database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	// Ignored for non-WAL databases; TRUNCATE writes the WAL back to the main file.
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE);")
	return s.db.Close()
}
