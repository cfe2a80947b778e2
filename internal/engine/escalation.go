package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lazypower/cadence/internal/clock"
	"github.com/lazypower/cadence/internal/metrics"
	"github.com/lazypower/cadence/internal/notify"
	"github.com/lazypower/cadence/internal/reminder"
	"github.com/lazypower/cadence/internal/store"
	"github.com/lazypower/cadence/internal/tier"
)

// DefaultEscalationOffsets are the follow-up delays after the due time for
// levels 1, 2 and 3.
var DefaultEscalationOffsets = []time.Duration{15 * time.Minute, 45 * time.Minute, 60 * time.Minute}

// Escalator runs the follow-up chain of unacknowledged tier-1 reminders.
// The last offset is the caregiver level.
type Escalator struct {
	repo     EscalationRepository
	notifier notify.Notifier
	tiers    *tier.Registry
	offsets  []time.Duration
	clock    clock.Clock
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// EscalationResult describes a Start call.
type EscalationResult struct {
	Started           bool              `json:"started"`
	Milestones        []store.Milestone `json:"milestones,omitempty"`
	CaregiverRecorded bool              `json:"caregiver_recorded,omitempty"`
	Diagnostics       []Diagnostic      `json:"diagnostics,omitempty"`
}

// Start replaces any chain of r with follow-ups at each offset after due.
// Offsets that are already past are skipped. It does nothing for reminders
// that are not tier-1. The chain is persisted only when at least one
// milestone was scheduled.
func (e *Escalator) Start(ctx context.Context, r *reminder.Reminder, due time.Time) (*EscalationResult, error) {
	out := &EscalationResult{}
	if !e.tiers.IsCritical(string(r.Category)) {
		return out, nil
	}
	out.Diagnostics = e.Stop(ctx, r.ID)

	now := e.clock.Now()
	profile := tier.Lookup(tier.T1)
	caregiverLevel := len(e.offsets)

	for i, off := range e.offsets {
		at := due.Add(off)
		if !at.After(now) {
			continue
		}
		level := i + 1
		content := tier.Attach(milestoneContent(r, level, due), profile)
		id, err := e.notifier.ScheduleAt(ctx, content, at)
		if err != nil {
			out.Diagnostics = append(out.Diagnostics, Diagnostic{Step: StepMilestone, ReminderID: r.ID, Err: fmt.Errorf("level %d: %w", level, err)})
			e.logger.Warn("schedule milestone", zap.String("reminder_id", r.ID), zap.Int("level", level), zap.Error(err))
			continue
		}
		out.Milestones = append(out.Milestones, store.Milestone{Level: level, ScheduledAt: at, NotificationID: id})
		e.metrics.Milestone(level)

		if level == caregiverLevel {
			rec := &store.CaregiverEscalation{
				ReminderID:  r.ID,
				CaregiverID: r.CaregiverID,
				Level:       level,
				DeliverAt:   at,
			}
			if err := e.repo.InsertCaregiverEscalation(ctx, rec); err != nil {
				out.Diagnostics = append(out.Diagnostics, Diagnostic{Step: StepCaregiver, ReminderID: r.ID, Err: err})
				e.logger.Warn("record caregiver escalation", zap.String("reminder_id", r.ID), zap.Error(err))
			} else {
				out.CaregiverRecorded = true
				e.metrics.CaregiverEscalation()
			}
		}
	}

	if len(out.Milestones) == 0 {
		return out, nil
	}
	chain := &store.EscalationChain{ReminderID: r.ID, Milestones: out.Milestones, CreatedAt: now}
	if err := e.repo.PutChain(ctx, chain); err != nil {
		for _, m := range out.Milestones {
			if cerr := e.notifier.Cancel(ctx, m.NotificationID); cerr != nil && !errors.Is(cerr, notify.ErrNotFound) {
				e.logger.Warn("cancel untracked milestone", zap.String("notification_id", m.NotificationID), zap.Error(cerr))
			}
		}
		return nil, fmt.Errorf("save escalation chain %s: %w", r.ID, err)
	}
	out.Started = true
	e.logger.Info("escalation started", zap.String("reminder_id", r.ID), zap.Int("milestones", len(out.Milestones)))
	return out, nil
}

// Stop cancels every milestone of a reminder's chain and removes the chain.
// It never fails; problems come back as diagnostics.
func (e *Escalator) Stop(ctx context.Context, reminderID string) []Diagnostic {
	chain, err := e.repo.GetChain(ctx, reminderID)
	if err != nil {
		return []Diagnostic{{Step: StepChain, ReminderID: reminderID, Err: err}}
	}
	if chain == nil {
		return nil
	}

	var diags []Diagnostic
	for _, m := range chain.Milestones {
		if err := e.notifier.Cancel(ctx, m.NotificationID); err != nil {
			if !errors.Is(err, notify.ErrNotFound) {
				diags = append(diags, Diagnostic{Step: StepCancel, ReminderID: reminderID, Err: err})
				e.logger.Warn("cancel milestone", zap.String("reminder_id", reminderID), zap.Int("level", m.Level), zap.Error(err))
			}
			continue
		}
		e.metrics.Cancelled()
	}
	if err := e.repo.DeleteChain(ctx, reminderID); err != nil {
		diags = append(diags, Diagnostic{Step: StepChain, ReminderID: reminderID, Err: err})
	}
	return diags
}

// IsActive reports whether a non-empty chain exists for the reminder.
func (e *Escalator) IsActive(ctx context.Context, reminderID string) bool {
	chain, err := e.repo.GetChain(ctx, reminderID)
	if err != nil {
		e.logger.Warn("load escalation chain", zap.String("reminder_id", reminderID), zap.Error(err))
		return false
	}
	return chain != nil && len(chain.Milestones) > 0
}

// Chain returns the live chain of a reminder, or nil.
func (e *Escalator) Chain(ctx context.Context, reminderID string) (*store.EscalationChain, error) {
	return e.repo.GetChain(ctx, reminderID)
}

func milestoneContent(r *reminder.Reminder, level int, due time.Time) notify.Content {
	body := fmt.Sprintf("Still waiting on %q, due at %s.", r.Title, due.Format("15:04"))
	return notify.Content{
		Title: r.Title,
		Body:  body,
		Data: map[string]any{
			"reminder_id":      r.ID,
			"escalation_level": level,
			"original_due":     due.Format(time.RFC3339),
		},
	}
}
