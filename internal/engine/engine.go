// Package engine decides when reminders fire. It keeps one live local
// notification per reminder, rolls recurring reminders forward, escalates
// unacknowledged tier-1 reminders and adapts routine anchors to observed
// snooze behaviour.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lazypower/cadence/internal/clock"
	"github.com/lazypower/cadence/internal/metrics"
	"github.com/lazypower/cadence/internal/notify"
	"github.com/lazypower/cadence/internal/reminder"
	"github.com/lazypower/cadence/internal/schedule"
	"github.com/lazypower/cadence/internal/store"
	"github.com/lazypower/cadence/internal/tier"
	"github.com/lazypower/cadence/internal/timeofday"
)

// Options configures New. Zero values select defaults.
type Options struct {
	Clock             clock.Clock
	Tiers             *tier.Registry
	Logger            *zap.Logger
	Metrics           *metrics.Metrics
	Prompter          Prompter
	EscalationOffsets []time.Duration
	SnoozeHistoryDays int
	SnoozePatternDays int
}

// Engine wires the scheduling components together.
type Engine struct {
	Anchors   *AnchorStore
	Scheduler *Scheduler
	Escalator *Escalator
	Snooze    *SnoozeDetector
	Tiers     *tier.Registry

	reminders ReminderRepository
	prompts   PromptRepository
	clock     clock.Clock
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// New builds an engine on the given repositories and notifier. Without a
// Prompter, offers are queued in repos.Prompts, or declined when that is
// nil too.
func New(repos Repositories, notifier notify.Notifier, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Tiers == nil {
		opts.Tiers = tier.NewRegistry(nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if len(opts.EscalationOffsets) == 0 {
		opts.EscalationOffsets = DefaultEscalationOffsets
	}
	if opts.SnoozeHistoryDays <= 0 {
		opts.SnoozeHistoryDays = DefaultSnoozeHistoryDays
	}
	if opts.SnoozePatternDays <= 0 {
		opts.SnoozePatternDays = DefaultSnoozePatternDays
	}
	if opts.Prompter == nil {
		if repos.Prompts != nil {
			opts.Prompter = NewQueuedPrompter(repos.Prompts)
		} else {
			opts.Prompter = Decline
		}
	}

	log := opts.Logger
	e := &Engine{
		Tiers:     opts.Tiers,
		reminders: repos.Reminders,
		prompts:   repos.Prompts,
		clock:     opts.Clock,
		logger:    log,
		metrics:   opts.Metrics,
	}
	e.Anchors = &AnchorStore{repo: repos.Anchors, logger: log.Named("anchors")}
	e.Escalator = &Escalator{
		repo:     repos.Escalations,
		notifier: notifier,
		tiers:    opts.Tiers,
		offsets:  append([]time.Duration(nil), opts.EscalationOffsets...),
		clock:    opts.Clock,
		logger:   log.Named("escalation"),
		metrics:  opts.Metrics,
	}
	e.Snooze = &SnoozeDetector{
		repo:        repos.Snoozes,
		anchors:     e.Anchors,
		prompter:    opts.Prompter,
		historyDays: opts.SnoozeHistoryDays,
		patternDays: opts.SnoozePatternDays,
		clock:       opts.Clock,
		logger:      log.Named("snooze"),
		metrics:     opts.Metrics,
	}
	e.Scheduler = &Scheduler{
		reminders: repos.Reminders,
		mappings:  repos.Mappings,
		notifier:  notifier,
		anchors:   e.Anchors,
		escalator: e.Escalator,
		snooze:    e.Snooze,
		tiers:     opts.Tiers,
		clock:     opts.Clock,
		logger:    log.Named("scheduler"),
		metrics:   opts.Metrics,
	}
	e.Anchors.scheduler = e.Scheduler
	return e
}

// NewWithStore builds an engine whose repositories are all backed by db. A db
// without a clock adopts the engine's, so stored timestamps follow it.
func NewWithStore(db *store.DB, notifier notify.Notifier, opts Options) *Engine {
	if db.Clock == nil {
		db.Clock = opts.Clock
	}
	return New(StoreRepositories(db), notifier, opts)
}

// Now is the engine clock's current time.
func (e *Engine) Now() time.Time { return e.clock.Now() }

// Resolve classifies a raw time input against the engine clock.
func (e *Engine) Resolve(raw string) schedule.Descriptor {
	return schedule.Resolve(raw, e.clock.Now())
}

// NextSlot applies the Next-Slot Rule to the current anchors.
func (e *Engine) NextSlot(ctx context.Context, ref time.Time) (*schedule.Slot, bool, error) {
	anchors, err := e.Anchors.Anchors(ctx)
	if err != nil {
		return nil, false, err
	}
	slot, ok := schedule.NextSlot(anchors, ref)
	return slot, ok, nil
}

// GetReminder loads a reminder or returns ErrNotFound.
func (e *Engine) GetReminder(ctx context.Context, id string) (*reminder.Reminder, error) {
	r, err := e.reminders.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil || r.Deleted {
		return nil, fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}
	return r, nil
}

// Created is the outcome of CreateReminder.
type Created struct {
	Reminder    *reminder.Reminder  `json:"reminder"`
	Descriptor  schedule.Descriptor `json:"descriptor"`
	Slot        *schedule.Slot      `json:"slot,omitempty"`
	Schedule    *ScheduleResult     `json:"schedule,omitempty"`
	Diagnostics []Diagnostic        `json:"diagnostics,omitempty"`
}

// CreateReminder validates a draft, applies category defaults, resolves its
// time, persists it and schedules it. Drafts without a usable time are bound
// to the next routine anchor. A scheduling failure is reported as a
// diagnostic since the reminder is already saved.
func (e *Engine) CreateReminder(ctx context.Context, d reminder.Draft) (*Created, error) {
	if err := reminder.Validate(d); err != nil {
		return nil, &ValidationError{Field: "reminder", Msg: err.Error()}
	}
	d = schedule.ApplyDefaults(d)

	now := e.clock.Now()
	desc := schedule.Resolve(d.RawTime, now)
	r := &reminder.Reminder{
		Title:               d.Title,
		Description:         d.Description,
		Category:            d.Category,
		Repeat:              *d.Repeat,
		NotifyBeforeMinutes: d.NotifyBeforeMinutes,
		Buffers:             d.Buffers,
		Status:              reminder.StatusPending,
		CaregiverID:         d.CaregiverID,
	}
	out := &Created{Reminder: r, Descriptor: desc}

	switch desc.Kind {
	case schedule.Specific:
		r.ReminderTime = desc.At.Format(time.RFC3339)
	case schedule.Routine:
		tod, err := e.Anchors.TimeOf(ctx, desc.Anchor)
		if err != nil {
			return nil, err
		}
		anchor, _ := schedule.CanonicalAnchor(desc.Anchor)
		r.RoutineAnchor = anchor
		r.ReminderTime = timeofday.NextOccurrence(now, tod).Format(time.RFC3339)
	default:
		slot, ok, err := e.NextSlot(ctx, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, invalid("time", "no time given and no routine anchors configured")
		}
		out.Slot = slot
		r.RoutineAnchor = slot.Anchor
		r.ReminderTime = slot.At.Format(time.RFC3339)
	}

	if err := e.reminders.CreateReminder(ctx, r); err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}

	res, err := e.Scheduler.ScheduleReminder(ctx, r, ScheduleOptions{})
	if err != nil {
		out.Diagnostics = append(out.Diagnostics, Diagnostic{Step: StepSchedule, ReminderID: r.ID, Err: err})
		e.logger.Warn("schedule new reminder", zap.String("reminder_id", r.ID), zap.Error(err))
	} else {
		out.Schedule = res
		out.Diagnostics = append(out.Diagnostics, res.Diagnostics...)
	}
	return out, nil
}

// Acknowledged is the outcome of Acknowledge.
type Acknowledged struct {
	Reminder    *reminder.Reminder `json:"reminder"`
	Next        *Occurrence        `json:"next,omitempty"`
	Diagnostics []Diagnostic       `json:"diagnostics,omitempty"`
}

// Acknowledge records the user's answer to a reminder. It stops escalation,
// cancels the live notification, stores the status and rolls recurring
// reminders to their next occurrence.
func (e *Engine) Acknowledge(ctx context.Context, id string, status reminder.Status) (*Acknowledged, error) {
	switch status {
	case reminder.StatusTaken, reminder.StatusSkipped, reminder.StatusMissed:
	default:
		return nil, invalid("status", "must be one of taken, skipped, missed; got %q", status)
	}
	r, err := e.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &Acknowledged{Reminder: r}
	out.Diagnostics = append(out.Diagnostics, e.Escalator.Stop(ctx, id)...)
	if err := e.Scheduler.CancelScheduledReminder(ctx, id); err != nil {
		out.Diagnostics = append(out.Diagnostics, Diagnostic{Step: StepCancel, ReminderID: id, Err: err})
	}

	r.Status = status
	if err := e.reminders.UpdateReminder(ctx, r); err != nil {
		return nil, fmt.Errorf("acknowledge %s: %w", id, err)
	}
	e.logger.Info("reminder acknowledged", zap.String("reminder_id", id), zap.String("status", string(status)))

	next, err := e.Scheduler.ScheduleNextOccurrence(ctx, r)
	if err != nil {
		out.Diagnostics = append(out.Diagnostics, Diagnostic{Step: StepNextOccurrence, ReminderID: id, Err: err})
	} else if next != nil {
		out.Next = next
		out.Reminder = next.Reminder
	}
	return out, nil
}

// DeleteReminder soft-deletes a reminder after cancelling its notification
// and escalation chain.
func (e *Engine) DeleteReminder(ctx context.Context, id string) ([]Diagnostic, error) {
	r, err := e.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}
	diags := e.Escalator.Stop(ctx, id)
	if err := e.Scheduler.CancelScheduledReminder(ctx, id); err != nil {
		diags = append(diags, Diagnostic{Step: StepCancel, ReminderID: id, Err: err})
	}
	r.Deleted = true
	if err := e.reminders.UpdateReminder(ctx, r); err != nil {
		return diags, fmt.Errorf("delete reminder %s: %w", id, err)
	}
	return diags, nil
}

// AcceptPrompt applies a queued anchor prompt.
func (e *Engine) AcceptPrompt(ctx context.Context, id string) (*AnchorUpdate, error) {
	p, err := e.pendingPrompt(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.prompts.ResolvePrompt(ctx, id, store.PromptAccepted); err != nil {
		return nil, err
	}
	e.metrics.Prompt(OutcomeAccepted)
	return e.Anchors.SetAnchor(ctx, p.Anchor, p.TimeOfDay)
}

// DismissPrompt closes a queued anchor prompt without changing the anchor.
func (e *Engine) DismissPrompt(ctx context.Context, id string) error {
	if _, err := e.pendingPrompt(ctx, id); err != nil {
		return err
	}
	if err := e.prompts.ResolvePrompt(ctx, id, store.PromptDismissed); err != nil {
		return err
	}
	e.metrics.Prompt(OutcomeDismissed)
	return nil
}

func (e *Engine) pendingPrompt(ctx context.Context, id string) (*store.AnchorPrompt, error) {
	if e.prompts == nil {
		return nil, fmt.Errorf("prompt %s: %w", id, ErrNotFound)
	}
	p, err := e.prompts.GetPrompt(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("prompt %s: %w", id, ErrNotFound)
	}
	if p.Status != store.PromptPending {
		return nil, invalid("prompt", "already %s", p.Status)
	}
	return p, nil
}
