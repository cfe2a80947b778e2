package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// SnoozeEntry is the snooze history of one (anchor, time of day) pair.
// Dates are calendar-date strings in ascending order.
type SnoozeEntry struct {
	Anchor       string   `json:"anchor"`
	TimeOfDay    string   `json:"time_of_day"`
	Dates        []string `json:"dates"`
	LastPrompted string   `json:"last_prompted,omitempty"`
}

// GetSnoozeEntry returns the history entry for (anchor, timeOfDay), or nil.
func (db *DB) GetSnoozeEntry(ctx context.Context, anchor, timeOfDay string) (*SnoozeEntry, error) {
	var dates string
	var lastPrompted sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT dates, last_prompted FROM snooze_history WHERE anchor = ? AND time_of_day = ?
	`, anchor, timeOfDay).Scan(&dates, &lastPrompted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snooze entry: %w", err)
	}

	e := &SnoozeEntry{Anchor: anchor, TimeOfDay: timeOfDay, LastPrompted: lastPrompted.String}
	if err := json.Unmarshal([]byte(dates), &e.Dates); err != nil {
		return nil, fmt.Errorf("decode snooze dates: %w", err)
	}
	return e, nil
}

// PutSnoozeEntry upserts a history entry.
func (db *DB) PutSnoozeEntry(ctx context.Context, e *SnoozeEntry) error {
	dates := e.Dates
	if dates == nil {
		dates = []string{}
	}
	data, err := json.Marshal(dates)
	if err != nil {
		return fmt.Errorf("encode snooze dates: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO snooze_history (anchor, time_of_day, dates, last_prompted, updated_at)
		VALUES (?, ?, ?, NULLIF(?, ''), ?)
		ON CONFLICT(anchor, time_of_day) DO UPDATE SET
			dates = excluded.dates, last_prompted = excluded.last_prompted, updated_at = excluded.updated_at
	`, e.Anchor, e.TimeOfDay, string(data), e.LastPrompted, db.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("put snooze entry: %w", err)
	}
	return nil
}
