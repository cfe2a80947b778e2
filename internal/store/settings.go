package store

import (
	"context"
	"database/sql"
	"fmt"
)

// LegacyAnchorsKey is the kv key older releases stored anchors under, as a
// single JSON object.
const LegacyAnchorsKey = "legacy.routine_anchors"

// GetSetting returns the value stored under key. ok is false when absent.
func (db *DB) GetSetting(ctx context.Context, key string) (value string, ok bool, err error) {
	err = db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSetting upserts a kv value.
func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, db.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// DeleteSetting removes a kv value. Missing keys are not an error.
func (db *DB) DeleteSetting(ctx context.Context, key string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}

// LoadAnchors returns every persisted anchor row, name → raw time of day.
// Values are returned as stored; callers normalize.
func (db *DB) LoadAnchors(ctx context.Context) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, time_of_day FROM routine_anchors`)
	if err != nil {
		return nil, fmt.Errorf("load anchors: %w", err)
	}
	defer rows.Close()

	anchors := make(map[string]string, 4)
	for rows.Next() {
		var name, tod string
		if err := rows.Scan(&name, &tod); err != nil {
			return nil, fmt.Errorf("scan anchor: %w", err)
		}
		anchors[name] = tod
	}
	return anchors, rows.Err()
}

// SaveAnchors upserts the given anchors in one transaction.
func (db *DB) SaveAnchors(ctx context.Context, anchors map[string]string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save anchors: %w", err)
	}
	now := db.now().UnixMilli()
	for name, tod := range anchors {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO routine_anchors (name, time_of_day, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET time_of_day = excluded.time_of_day, updated_at = excluded.updated_at
		`, name, tod, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("save anchor %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit anchors: %w", err)
	}
	return nil
}
