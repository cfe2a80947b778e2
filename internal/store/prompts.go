package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Prompt statuses.
const (
	PromptPending   = "pending"
	PromptAccepted  = "accepted"
	PromptDismissed = "dismissed"
)

// AnchorPrompt is an adaptive offer to move a routine anchor to the time the
// user keeps snoozing to.
type AnchorPrompt struct {
	ID         string     `json:"id"`
	Anchor     string     `json:"anchor"`
	TimeOfDay  string     `json:"time_of_day"`
	ReminderID string     `json:"reminder_id,omitempty"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// InsertPrompt records a pending prompt.
func (db *DB) InsertPrompt(ctx context.Context, p *AnchorPrompt) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = PromptPending
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = db.now()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO anchor_prompts (id, anchor, time_of_day, reminder_id, status, created_at)
		VALUES (?, ?, ?, NULLIF(?, ''), ?, ?)
	`, p.ID, p.Anchor, p.TimeOfDay, p.ReminderID, p.Status, p.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert prompt: %w", err)
	}
	return nil
}

// GetPrompt returns a prompt by id, or nil.
func (db *DB) GetPrompt(ctx context.Context, id string) (*AnchorPrompt, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, anchor, time_of_day, reminder_id, status, created_at, resolved_at
		FROM anchor_prompts WHERE id = ?
	`, id)
	p, err := scanPrompt(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get prompt: %w", err)
	}
	return p, nil
}

// ListPendingPrompts returns unresolved prompts, oldest first.
func (db *DB) ListPendingPrompts(ctx context.Context) ([]AnchorPrompt, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, anchor, time_of_day, reminder_id, status, created_at, resolved_at
		FROM anchor_prompts WHERE status = 'pending' ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()

	var out []AnchorPrompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ResolvePrompt moves a pending prompt to accepted or dismissed.
func (db *DB) ResolvePrompt(ctx context.Context, id, status string) error {
	if status != PromptAccepted && status != PromptDismissed {
		return fmt.Errorf("resolve prompt: invalid status %q", status)
	}
	result, err := db.ExecContext(ctx, `
		UPDATE anchor_prompts SET status = ?, resolved_at = ? WHERE id = ? AND status = 'pending'
	`, status, db.now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("resolve prompt: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("no pending prompt found for %s", id)
	}
	return nil
}

func scanPrompt(s scanner) (*AnchorPrompt, error) {
	var p AnchorPrompt
	var reminderID sql.NullString
	var created int64
	var resolved sql.NullInt64
	if err := s.Scan(&p.ID, &p.Anchor, &p.TimeOfDay, &reminderID, &p.Status, &created, &resolved); err != nil {
		return nil, err
	}
	p.ReminderID = reminderID.String
	p.CreatedAt = time.UnixMilli(created)
	if resolved.Valid {
		t := time.UnixMilli(resolved.Int64)
		p.ResolvedAt = &t
	}
	return &p, nil
}
