package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Milestone is one scheduled follow-up of an escalation chain.
type Milestone struct {
	Level          int       `json:"level"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	NotificationID string    `json:"notification_id"`
}

// EscalationChain is the set of live follow-ups for one tier-1 reminder.
type EscalationChain struct {
	ReminderID string      `json:"reminder_id"`
	Milestones []Milestone `json:"milestones"`
	CreatedAt  time.Time   `json:"created_at"`
}

// CaregiverEscalation is a request for an external system to notify a
// caregiver. Rows are insert-only.
type CaregiverEscalation struct {
	ID          int64     `json:"id"`
	ReminderID  string    `json:"reminder_id"`
	CaregiverID string    `json:"caregiver_id,omitempty"`
	Level       int       `json:"level"`
	DeliverAt   time.Time `json:"deliver_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// GetChain returns the escalation chain of a reminder, or nil.
func (db *DB) GetChain(ctx context.Context, reminderID string) (*EscalationChain, error) {
	var milestones string
	var created int64
	err := db.QueryRowContext(ctx, `
		SELECT milestones, created_at FROM escalation_chains WHERE reminder_id = ?
	`, reminderID).Scan(&milestones, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chain: %w", err)
	}

	chain := &EscalationChain{ReminderID: reminderID, CreatedAt: time.UnixMilli(created)}
	if err := json.Unmarshal([]byte(milestones), &chain.Milestones); err != nil {
		return nil, fmt.Errorf("decode milestones: %w", err)
	}
	return chain, nil
}

// PutChain replaces the escalation chain of a reminder.
func (db *DB) PutChain(ctx context.Context, chain *EscalationChain) error {
	data, err := json.Marshal(chain.Milestones)
	if err != nil {
		return fmt.Errorf("encode milestones: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO escalation_chains (reminder_id, milestones, created_at) VALUES (?, ?, ?)
		ON CONFLICT(reminder_id) DO UPDATE SET milestones = excluded.milestones, created_at = excluded.created_at
	`, chain.ReminderID, string(data), chain.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("put chain: %w", err)
	}
	return nil
}

// DeleteChain removes a reminder's chain. Missing chains are not an error.
func (db *DB) DeleteChain(ctx context.Context, reminderID string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM escalation_chains WHERE reminder_id = ?`, reminderID); err != nil {
		return fmt.Errorf("delete chain: %w", err)
	}
	return nil
}

// InsertCaregiverEscalation records a caregiver escalation request.
func (db *DB) InsertCaregiverEscalation(ctx context.Context, e *CaregiverEscalation) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = db.now()
	}
	result, err := db.ExecContext(ctx, `
		INSERT INTO caregiver_escalations (reminder_id, caregiver_id, level, deliver_at, created_at)
		VALUES (?, NULLIF(?, ''), ?, ?, ?)
	`, e.ReminderID, e.CaregiverID, e.Level, e.DeliverAt.UnixMilli(), e.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert caregiver escalation: %w", err)
	}
	e.ID, _ = result.LastInsertId()
	return nil
}

// ListCaregiverEscalations returns the escalation requests of a reminder,
// newest first.
func (db *DB) ListCaregiverEscalations(ctx context.Context, reminderID string) ([]CaregiverEscalation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, reminder_id, caregiver_id, level, deliver_at, created_at
		FROM caregiver_escalations WHERE reminder_id = ? ORDER BY created_at DESC, id DESC
	`, reminderID)
	if err != nil {
		return nil, fmt.Errorf("list caregiver escalations: %w", err)
	}
	defer rows.Close()

	var out []CaregiverEscalation
	for rows.Next() {
		var e CaregiverEscalation
		var caregiver sql.NullString
		var deliver, created int64
		if err := rows.Scan(&e.ID, &e.ReminderID, &caregiver, &e.Level, &deliver, &created); err != nil {
			return nil, fmt.Errorf("scan caregiver escalation: %w", err)
		}
		e.CaregiverID = caregiver.String
		e.DeliverAt = time.UnixMilli(deliver)
		e.CreatedAt = time.UnixMilli(created)
		out = append(out, e)
	}
	return out, rows.Err()
}
