package store

import (
	"context"
	"database/sql"
	"fmt"
)

// GetMapping returns the live notification id for a reminder, or "" if none.
func (db *DB) GetMapping(ctx context.Context, reminderID string) (string, error) {
	var id string
	err := db.QueryRowContext(ctx, `SELECT notification_id FROM notification_map WHERE reminder_id = ?`, reminderID).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get mapping: %w", err)
	}
	return id, nil
}

// PutMapping records notificationID as the single live notification of a
// reminder, replacing any previous row.
func (db *DB) PutMapping(ctx context.Context, reminderID, notificationID string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO notification_map (reminder_id, notification_id, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(reminder_id) DO UPDATE SET notification_id = excluded.notification_id, updated_at = excluded.updated_at
	`, reminderID, notificationID, db.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("put mapping: %w", err)
	}
	return nil
}

// DeleteMapping removes a reminder's mapping row.
func (db *DB) DeleteMapping(ctx context.Context, reminderID string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM notification_map WHERE reminder_id = ?`, reminderID); err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	return nil
}

// CountMappings returns the number of mapped reminders.
func (db *DB) CountMappings(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notification_map`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count mappings: %w", err)
	}
	return n, nil
}
