package engine

import (
	"context"

	"github.com/lazypower/cadence/internal/reminder"
	"github.com/lazypower/cadence/internal/store"
)

// AnchorRepository persists routine anchor times and the legacy settings
// they may be migrated from.
type AnchorRepository interface {
	LoadAnchors(ctx context.Context) (map[string]string, error)
	SaveAnchors(ctx context.Context, anchors map[string]string) error
	GetSetting(ctx context.Context, key string) (string, bool, error)
	DeleteSetting(ctx context.Context, key string) error
}

// MappingRepository holds the reminder → live notification id mapping.
// GetMapping returns "" when no mapping exists.
type MappingRepository interface {
	GetMapping(ctx context.Context, reminderID string) (string, error)
	PutMapping(ctx context.Context, reminderID, notificationID string) error
	DeleteMapping(ctx context.Context, reminderID string) error
}

// EscalationRepository persists escalation chains and caregiver requests.
type EscalationRepository interface {
	GetChain(ctx context.Context, reminderID string) (*store.EscalationChain, error)
	PutChain(ctx context.Context, chain *store.EscalationChain) error
	DeleteChain(ctx context.Context, reminderID string) error
	InsertCaregiverEscalation(ctx context.Context, e *store.CaregiverEscalation) error
}

// SnoozeRepository persists snooze history entries.
type SnoozeRepository interface {
	GetSnoozeEntry(ctx context.Context, anchor, timeOfDay string) (*store.SnoozeEntry, error)
	PutSnoozeEntry(ctx context.Context, e *store.SnoozeEntry) error
}

// ReminderRepository is the reminder data store. GetReminder returns nil
// when the reminder does not exist.
type ReminderRepository interface {
	CreateReminder(ctx context.Context, r *reminder.Reminder) error
	GetReminder(ctx context.Context, id string) (*reminder.Reminder, error)
	UpdateReminder(ctx context.Context, r *reminder.Reminder) error
	ListSchedulable(ctx context.Context) ([]reminder.Reminder, error)
	ListByAnchor(ctx context.Context, anchor string) ([]reminder.Reminder, error)
}

// PromptRepository records adaptive anchor prompts awaiting an answer.
type PromptRepository interface {
	InsertPrompt(ctx context.Context, p *store.AnchorPrompt) error
	GetPrompt(ctx context.Context, id string) (*store.AnchorPrompt, error)
	ResolvePrompt(ctx context.Context, id, status string) error
}

// Repositories bundles the per-entity stores the engine depends on.
type Repositories struct {
	Anchors     AnchorRepository
	Mappings    MappingRepository
	Escalations EscalationRepository
	Snoozes     SnoozeRepository
	Reminders   ReminderRepository
	Prompts     PromptRepository
}

// StoreRepositories backs every repository with the SQLite store.
func StoreRepositories(db *store.DB) Repositories {
	return Repositories{
		Anchors:     db,
		Mappings:    db,
		Escalations: db,
		Snoozes:     db,
		Reminders:   db,
		Prompts:     db,
	}
}
