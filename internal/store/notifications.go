package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// LocalNotification is a queued on-device notification.
type LocalNotification struct {
	ID          string
	ReminderID  string
	Payload     string
	FireAt      time.Time
	DeliveredAt *time.Time
	CreatedAt   time.Time
}

// InsertLocalNotification queues a notification to fire at n.FireAt.
func (db *DB) InsertLocalNotification(ctx context.Context, n *LocalNotification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = db.now()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO local_notifications (id, reminder_id, payload, fire_at, created_at)
		VALUES (?, NULLIF(?, ''), ?, ?, ?)
	`, n.ID, n.ReminderID, n.Payload, n.FireAt.UnixMilli(), n.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert local notification: %w", err)
	}
	return nil
}

// DeleteLocalNotification removes an undelivered notification. It reports
// false when no such pending notification exists.
func (db *DB) DeleteLocalNotification(ctx context.Context, id string) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM local_notifications WHERE id = ? AND delivered_at IS NULL`, id)
	if err != nil {
		return false, fmt.Errorf("delete local notification: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// GetLocalNotification returns a notification by id, or nil.
func (db *DB) GetLocalNotification(ctx context.Context, id string) (*LocalNotification, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, reminder_id, payload, fire_at, delivered_at, created_at
		FROM local_notifications WHERE id = ?
	`, id)
	n, err := scanLocalNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get local notification: %w", err)
	}
	return n, nil
}

// PendingNotifications returns undelivered notifications firing at or before
// until, earliest first. A zero until returns every pending notification.
func (db *DB) PendingNotifications(ctx context.Context, until time.Time) ([]LocalNotification, error) {
	query := `
		SELECT id, reminder_id, payload, fire_at, delivered_at, created_at
		FROM local_notifications WHERE delivered_at IS NULL`
	var args []any
	if !until.IsZero() {
		query += ` AND fire_at <= ?`
		args = append(args, until.UnixMilli())
	}
	query += ` ORDER BY fire_at, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pending notifications: %w", err)
	}
	defer rows.Close()

	var out []LocalNotification
	for rows.Next() {
		n, err := scanLocalNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan local notification: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// MarkDelivered stamps delivered_at on a notification.
func (db *DB) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	_, err := db.ExecContext(ctx, `
		UPDATE local_notifications SET delivered_at = ? WHERE id = ? AND delivered_at IS NULL
	`, at.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	return nil
}

func scanLocalNotification(s scanner) (*LocalNotification, error) {
	var n LocalNotification
	var reminderID sql.NullString
	var fireAt, created int64
	var delivered sql.NullInt64
	if err := s.Scan(&n.ID, &reminderID, &n.Payload, &fireAt, &delivered, &created); err != nil {
		return nil, err
	}
	n.ReminderID = reminderID.String
	n.FireAt = time.UnixMilli(fireAt)
	n.CreatedAt = time.UnixMilli(created)
	if delivered.Valid {
		t := time.UnixMilli(delivered.Int64)
		n.DeliveredAt = &t
	}
	return &n, nil
}
