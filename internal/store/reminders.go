package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/lazypower/cadence/internal/reminder"
)

const reminderColumns = `id, title, description, category, frequency_type, repeat_days, times_per_day,
	notify_before_minutes, buffers, routine_anchor, status, reminder_time, caregiver_id, deleted,
	created_at, updated_at`

// CreateReminder inserts a reminder, assigning an id when empty and filling
// status and timestamps.
func (db *DB) CreateReminder(ctx context.Context, r *reminder.Reminder) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = reminder.StatusPending
	}
	if r.Repeat.FrequencyType == "" {
		r.Repeat.FrequencyType = reminder.FrequencyNone
	}
	now := db.now().UnixMilli()

	days, buffers, err := encodeLists(r)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO reminders (`+reminderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?, NULLIF(?, ''), ?, ?, ?)
	`, r.ID, r.Title, r.Description, r.Category, r.Repeat.FrequencyType, days, r.Repeat.TimesPerDay,
		r.NotifyBeforeMinutes, buffers, r.RoutineAnchor, r.Status, r.ReminderTime, r.CaregiverID,
		boolInt(r.Deleted), now, now)
	if err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// GetReminder returns a reminder by id, or nil if not found. Soft-deleted
// rows are returned with Deleted set.
func (db *DB) GetReminder(ctx context.Context, id string) (*reminder.Reminder, error) {
	row := db.QueryRowContext(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id)
	r, err := scanReminder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reminder: %w", err)
	}
	return r, nil
}

// UpdateReminder writes every mutable field of r.
func (db *DB) UpdateReminder(ctx context.Context, r *reminder.Reminder) error {
	days, buffers, err := encodeLists(r)
	if err != nil {
		return err
	}
	now := db.now().UnixMilli()
	result, err := db.ExecContext(ctx, `
		UPDATE reminders SET title = ?, description = ?, category = ?, frequency_type = ?, repeat_days = ?,
			times_per_day = ?, notify_before_minutes = ?, buffers = ?, routine_anchor = NULLIF(?, ''),
			status = ?, reminder_time = ?, caregiver_id = NULLIF(?, ''), deleted = ?, updated_at = ?
		WHERE id = ?
	`, r.Title, r.Description, r.Category, orNone(r.Repeat.FrequencyType), days,
		r.Repeat.TimesPerDay, r.NotifyBeforeMinutes, buffers, r.RoutineAnchor,
		r.Status, r.ReminderTime, r.CaregiverID, boolInt(r.Deleted), now, r.ID)
	if err != nil {
		return fmt.Errorf("update reminder: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("update reminder %s: %w", r.ID, sql.ErrNoRows)
	}
	r.UpdatedAt = now
	return nil
}

// ListSchedulable returns every non-deleted reminder that is pending or
// snoozed, oldest first.
func (db *DB) ListSchedulable(ctx context.Context) ([]reminder.Reminder, error) {
	return db.queryReminders(ctx, `
		SELECT `+reminderColumns+` FROM reminders
		WHERE deleted = 0 AND status IN ('pending', 'snoozed')
		ORDER BY created_at, id
	`)
}

// ListByAnchor returns non-deleted, pending or snoozed reminders bound to the
// given routine anchor.
func (db *DB) ListByAnchor(ctx context.Context, anchor string) ([]reminder.Reminder, error) {
	return db.queryReminders(ctx, `
		SELECT `+reminderColumns+` FROM reminders
		WHERE deleted = 0 AND status IN ('pending', 'snoozed') AND routine_anchor = ?
		ORDER BY created_at, id
	`, anchor)
}

// ListReminders returns every non-deleted reminder, oldest first.
func (db *DB) ListReminders(ctx context.Context) ([]reminder.Reminder, error) {
	return db.queryReminders(ctx, `
		SELECT `+reminderColumns+` FROM reminders WHERE deleted = 0 ORDER BY created_at, id
	`)
}

func (db *DB) queryReminders(ctx context.Context, query string, args ...any) ([]reminder.Reminder, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer rows.Close()

	var out []reminder.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReminder(s scanner) (*reminder.Reminder, error) {
	var r reminder.Reminder
	var days, buffers string
	var anchor, caregiver sql.NullString
	var deleted int
	if err := s.Scan(&r.ID, &r.Title, &r.Description, &r.Category, &r.Repeat.FrequencyType, &days,
		&r.Repeat.TimesPerDay, &r.NotifyBeforeMinutes, &buffers, &anchor, &r.Status, &r.ReminderTime,
		&caregiver, &deleted, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if days != "" && days != "[]" {
		if err := json.Unmarshal([]byte(days), &r.Repeat.RepeatDays); err != nil {
			return nil, fmt.Errorf("decode repeat_days: %w", err)
		}
	}
	if buffers != "" && buffers != "[]" {
		if err := json.Unmarshal([]byte(buffers), &r.Buffers); err != nil {
			return nil, fmt.Errorf("decode buffers: %w", err)
		}
	}
	r.RoutineAnchor = anchor.String
	r.CaregiverID = caregiver.String
	r.Deleted = deleted != 0
	return &r, nil
}

func encodeLists(r *reminder.Reminder) (days, buffers string, err error) {
	d := r.Repeat.RepeatDays
	if d == nil {
		d = []string{}
	}
	b := r.Buffers
	if b == nil {
		b = []int{}
	}
	dj, err := json.Marshal(d)
	if err != nil {
		return "", "", fmt.Errorf("encode repeat_days: %w", err)
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return "", "", fmt.Errorf("encode buffers: %w", err)
	}
	return string(dj), string(bj), nil
}

func orNone(f reminder.Frequency) reminder.Frequency {
	if f == "" {
		return reminder.FrequencyNone
	}
	return f
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
