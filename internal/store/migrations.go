package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "kv + routine_anchors: settings and the four daily anchors",
		SQL: `
CREATE TABLE kv (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE routine_anchors (
    name        TEXT PRIMARY KEY CHECK (name IN ('Breakfast', 'Lunch', 'Dinner', 'Bedtime')),
    time_of_day TEXT NOT NULL,
    updated_at  INTEGER NOT NULL
);
`,
	},
	{
		Version:     2,
		Description: "reminders: reminder rows read and written by the engine",
		SQL: `
CREATE TABLE reminders (
    id                    TEXT PRIMARY KEY,
    title                 TEXT NOT NULL,
    description           TEXT NOT NULL DEFAULT '',
    category              TEXT NOT NULL CHECK (category IN ('medications', 'appointments', 'important_dates', 'other')),

    -- Repeat rule
    frequency_type        TEXT NOT NULL DEFAULT 'none' CHECK (frequency_type IN ('none', 'once', 'daily', 'weekly', 'custom')),
    repeat_days           TEXT NOT NULL DEFAULT '[]',
    times_per_day         INTEGER NOT NULL DEFAULT 0,

    notify_before_minutes INTEGER NOT NULL DEFAULT 0,
    buffers               TEXT NOT NULL DEFAULT '[]',
    routine_anchor        TEXT,
    status                TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'snoozed', 'taken', 'skipped', 'missed')),
    reminder_time         TEXT NOT NULL DEFAULT '',
    caregiver_id          TEXT,
    deleted               INTEGER NOT NULL DEFAULT 0,

    created_at            INTEGER NOT NULL,
    updated_at            INTEGER NOT NULL
);

CREATE INDEX idx_reminders_status ON reminders(deleted, status);
CREATE INDEX idx_reminders_anchor ON reminders(routine_anchor);
`,
	},
	{
		Version:     3,
		Description: "notification_map + local_notifications: one live notification per reminder",
		SQL: `
CREATE TABLE notification_map (
    reminder_id     TEXT PRIMARY KEY,
    notification_id TEXT NOT NULL,
    updated_at      INTEGER NOT NULL
);

CREATE TABLE local_notifications (
    id           TEXT PRIMARY KEY,
    reminder_id  TEXT,
    payload      TEXT NOT NULL,
    fire_at      INTEGER NOT NULL,
    delivered_at INTEGER,
    created_at   INTEGER NOT NULL
);

CREATE INDEX idx_local_notifications_due ON local_notifications(delivered_at, fire_at);
`,
	},
	{
		Version:     4,
		Description: "escalation_chains + caregiver_escalations: tier-1 follow-ups",
		SQL: `
CREATE TABLE escalation_chains (
    reminder_id TEXT PRIMARY KEY,
    milestones  TEXT NOT NULL,
    created_at  INTEGER NOT NULL
);

CREATE TABLE caregiver_escalations (
    id           INTEGER PRIMARY KEY,
    reminder_id  TEXT NOT NULL,
    caregiver_id TEXT,
    level        INTEGER NOT NULL,
    deliver_at   INTEGER NOT NULL,
    created_at   INTEGER NOT NULL
);

CREATE INDEX idx_caregiver_escalations_reminder ON caregiver_escalations(reminder_id);
`,
	},
	{
		Version:     5,
		Description: "snooze_history + anchor_prompts: adaptive anchor detection",
		SQL: `
CREATE TABLE snooze_history (
    anchor        TEXT NOT NULL,
    time_of_day   TEXT NOT NULL,
    dates         TEXT NOT NULL DEFAULT '[]',
    last_prompted TEXT,
    updated_at    INTEGER NOT NULL,
    PRIMARY KEY (anchor, time_of_day)
);

CREATE TABLE anchor_prompts (
    id          TEXT PRIMARY KEY,
    anchor      TEXT NOT NULL,
    time_of_day TEXT NOT NULL,
    reminder_id TEXT,
    status      TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'dismissed')),
    created_at  INTEGER NOT NULL,
    resolved_at INTEGER
);

CREATE INDEX idx_anchor_prompts_status ON anchor_prompts(status);
`,
	},
}

func (db *DB) migrate() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
