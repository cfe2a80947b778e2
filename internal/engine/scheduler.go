package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/lazypower/cadence/internal/clock"
	"github.com/lazypower/cadence/internal/metrics"
	"github.com/lazypower/cadence/internal/notify"
	"github.com/lazypower/cadence/internal/reminder"
	"github.com/lazypower/cadence/internal/schedule"
	"github.com/lazypower/cadence/internal/tier"
	"github.com/lazypower/cadence/internal/timeofday"
)

// SkipPast is the skip reason when the fire time is not in the future.
const SkipPast = "past"

// Scheduler keeps at most one live local notification per reminder.
type Scheduler struct {
	reminders ReminderRepository
	mappings  MappingRepository
	notifier  notify.Notifier
	anchors   *AnchorStore
	escalator *Escalator
	snooze    *SnoozeDetector
	tiers     *tier.Registry
	clock     clock.Clock
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// ScheduleOptions adjusts a single ScheduleReminder call.
type ScheduleOptions struct {
	// OverrideDate replaces the time derived from the reminder.
	OverrideDate *time.Time
	// IgnoreLeadTime fires at the target itself instead of
	// NotifyBeforeMinutes earlier.
	IgnoreLeadTime bool
}

// ScheduleResult describes what ScheduleReminder did.
type ScheduleResult struct {
	ReminderID     string            `json:"reminder_id"`
	NotificationID string            `json:"notification_id,omitempty"`
	Target         time.Time         `json:"target,omitzero"`
	FireAt         time.Time         `json:"fire_at,omitzero"`
	Tier           string            `json:"tier,omitempty"`
	Skipped        bool              `json:"skipped,omitempty"`
	SkipReason     string            `json:"skip_reason,omitempty"`
	Escalation     *EscalationResult `json:"escalation,omitempty"`
	Diagnostics    []Diagnostic      `json:"diagnostics,omitempty"`
}

// Scheduled reports whether a notification is now live for the reminder.
func (r *ScheduleResult) Scheduled() bool {
	return r != nil && r.NotificationID != ""
}

// ScheduleReminder cancels any live notification of r and schedules a new one
// at its next target time, minus the lead time. A snoozed reminder already
// carries the exact time the user asked for and fires without a lead. A
// target that is not strictly in the future is skipped, not an error.
// Tier-1 reminders also start an escalation chain.
func (s *Scheduler) ScheduleReminder(ctx context.Context, r *reminder.Reminder, opts ScheduleOptions) (*ScheduleResult, error) {
	if err := s.CancelScheduledReminder(ctx, r.ID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	res := &ScheduleResult{ReminderID: r.ID}

	var target time.Time
	if opts.OverrideDate != nil {
		target = *opts.OverrideDate
	} else {
		t, err := s.TargetTime(ctx, r, now)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", r.ID, err)
		}
		target = t
	}
	res.Target = target

	fireAt := target
	if !opts.IgnoreLeadTime && r.Status != reminder.StatusSnoozed && r.NotifyBeforeMinutes > 0 {
		fireAt = target.Add(-time.Duration(r.NotifyBeforeMinutes) * time.Minute)
	}
	res.FireAt = fireAt

	if !fireAt.After(now) {
		res.Skipped = true
		res.SkipReason = SkipPast
		s.metrics.Skipped(SkipPast)
		s.logger.Debug("skip past reminder", zap.String("reminder_id", r.ID), zap.Time("fire_at", fireAt))
		return res, nil
	}

	profile := s.tiers.Resolve(string(r.Category))
	res.Tier = profile.ID
	content := tier.Attach(reminderContent(r, target), profile)

	id, err := s.notifier.ScheduleAt(ctx, content, fireAt)
	if err != nil {
		return nil, fmt.Errorf("schedule %s: %w", r.ID, err)
	}
	if err := s.mappings.PutMapping(ctx, r.ID, id); err != nil {
		// Unmapped notifications could never be cancelled.
		if cerr := s.notifier.Cancel(ctx, id); cerr != nil && !errors.Is(cerr, notify.ErrNotFound) {
			s.logger.Warn("cancel unmapped notification", zap.String("notification_id", id), zap.Error(cerr))
		}
		return nil, fmt.Errorf("save mapping %s: %w", r.ID, err)
	}
	res.NotificationID = id
	s.metrics.Scheduled(profile.ID)
	s.logger.Info("reminder scheduled",
		zap.String("reminder_id", r.ID),
		zap.String("notification_id", id),
		zap.String("tier", profile.ID),
		zap.Time("fire_at", fireAt),
	)

	if profile.ID == tier.T1 {
		esc, err := s.escalator.Start(ctx, r, target)
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Step: StepEscalation, ReminderID: r.ID, Err: err})
			s.logger.Warn("start escalation", zap.String("reminder_id", r.ID), zap.Error(err))
		} else {
			res.Escalation = esc
			res.Diagnostics = append(res.Diagnostics, esc.Diagnostics...)
		}
	}
	return res, nil
}

// CancelScheduledReminder cancels the mapped notification of a reminder and
// drops the mapping. A notification that is already gone counts as
// cancelled; a reminder without a mapping is a no-op.
func (s *Scheduler) CancelScheduledReminder(ctx context.Context, reminderID string) error {
	id, err := s.mappings.GetMapping(ctx, reminderID)
	if err != nil {
		return fmt.Errorf("cancel %s: %w", reminderID, err)
	}
	if id == "" {
		return nil
	}
	if err := s.notifier.Cancel(ctx, id); err != nil {
		if !errors.Is(err, notify.ErrNotFound) {
			return fmt.Errorf("cancel notification %s: %w", id, err)
		}
	} else {
		s.metrics.Cancelled()
	}
	if err := s.mappings.DeleteMapping(ctx, reminderID); err != nil {
		return fmt.Errorf("cancel %s: %w", reminderID, err)
	}
	return nil
}

// TargetTime resolves the reminder's own time: a routine token becomes the
// next future occurrence of that anchor, anything else must be a timestamp.
func (s *Scheduler) TargetTime(ctx context.Context, r *reminder.Reminder, now time.Time) (time.Time, error) {
	if name, ok := r.RoutineToken(); ok {
		tod, err := s.anchors.TimeOf(ctx, name)
		if err != nil {
			return time.Time{}, err
		}
		return timeofday.NextOccurrence(now, tod), nil
	}
	t, ok := schedule.ParseTimestamp(r.ReminderTime, now.Location())
	if !ok {
		return time.Time{}, invalid("reminder_time", "cannot parse %q", r.ReminderTime)
	}
	return t, nil
}

// currentTime is the reminder's time as recurrence math sees it: the stored
// timestamp, or today's occurrence of a routine token's anchor.
func (s *Scheduler) currentTime(ctx context.Context, r *reminder.Reminder, now time.Time) (time.Time, error) {
	if name, ok := r.RoutineToken(); ok {
		tod, err := s.anchors.TimeOf(ctx, name)
		if err != nil {
			return time.Time{}, err
		}
		return timeofday.Combine(now, tod), nil
	}
	t, ok := schedule.ParseTimestamp(r.ReminderTime, now.Location())
	if !ok {
		return time.Time{}, invalid("reminder_time", "cannot parse %q", r.ReminderTime)
	}
	return t, nil
}

// ComputeNextOccurrence returns the next recurrence strictly after now.
// Reminders that do not repeat daily or weekly have none.
func (s *Scheduler) ComputeNextOccurrence(ctx context.Context, r *reminder.Reminder) (time.Time, bool, error) {
	freq := r.Repeat.FrequencyType
	if freq != reminder.FrequencyDaily && freq != reminder.FrequencyWeekly {
		return time.Time{}, false, nil
	}
	now := s.clock.Now()
	cur, err := s.currentTime(ctx, r, now)
	if err != nil {
		return time.Time{}, false, err
	}
	next, ok := NextOccurrence(r.Repeat, cur, now)
	return next, ok, nil
}

// NextOccurrence applies a repeat rule to cur. Daily rules step one calendar
// day at a time. Weekly rules with repeat days jump to the nearest listed
// weekday after cur (a full week when cur's weekday is the only match), then
// step whole weeks; without repeat days they step whole weeks from cur.
// Stepping continues until the result is strictly after now.
func NextOccurrence(rule reminder.RepeatRule, cur, now time.Time) (time.Time, bool) {
	var next time.Time
	step := 0
	switch rule.FrequencyType {
	case reminder.FrequencyDaily:
		next, step = cur.AddDate(0, 0, 1), 1
	case reminder.FrequencyWeekly:
		next, step = cur.AddDate(0, 0, weeklyOffset(cur.Weekday(), rule.RepeatDays)), 7
	default:
		return time.Time{}, false
	}
	for !next.After(now) {
		next = next.AddDate(0, 0, step)
	}
	return next, true
}

// weeklyOffset is the smallest forward day count in 1..7 from wd to a listed
// weekday. Unparseable or missing days give 7.
func weeklyOffset(wd time.Weekday, days []string) int {
	best := 7
	for _, d := range days {
		target, ok := timeofday.ParseWeekday(d)
		if !ok {
			continue
		}
		off := (int(target) - int(wd) + 7) % 7
		if off == 0 {
			off = 7
		}
		if off < best {
			best = off
		}
	}
	return best
}

// Occurrence is a reminder moved to its next recurrence and the scheduling
// outcome for it.
type Occurrence struct {
	Reminder *reminder.Reminder `json:"reminder"`
	Schedule *ScheduleResult    `json:"schedule"`
}

// ScheduleNextOccurrence moves r to its next recurrence, resets it to pending,
// persists it and schedules it. It returns nil when r does not recur.
func (s *Scheduler) ScheduleNextOccurrence(ctx context.Context, r *reminder.Reminder) (*Occurrence, error) {
	next, ok, err := s.ComputeNextOccurrence(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("next occurrence %s: %w", r.ID, err)
	}
	if !ok {
		return nil, nil
	}

	updated := r.Clone()
	if name, ok := r.RoutineToken(); ok && updated.RoutineAnchor == "" {
		if canon, ok := schedule.CanonicalAnchor(name); ok {
			updated.RoutineAnchor = canon
		}
	}
	updated.ReminderTime = next.Format(time.RFC3339)
	updated.Status = reminder.StatusPending
	if err := s.reminders.UpdateReminder(ctx, updated); err != nil {
		return nil, fmt.Errorf("next occurrence %s: %w", r.ID, err)
	}

	res, err := s.ScheduleReminder(ctx, updated, ScheduleOptions{})
	if err != nil {
		return nil, err
	}
	return &Occurrence{Reminder: updated, Schedule: res}, nil
}

// SnoozeResult is the outcome of SnoozeReminder.
type SnoozeResult struct {
	Reminder    *reminder.Reminder `json:"reminder"`
	Schedule    *ScheduleResult    `json:"schedule,omitempty"`
	Pattern     *PatternResult     `json:"pattern,omitempty"`
	Diagnostics []Diagnostic       `json:"diagnostics,omitempty"`
}

// SnoozeReminder pushes a reminder minutes past its current time, marks it
// snoozed and reschedules it at exactly the new time. Snooze pattern
// recording and rescheduling are best effort; load and update failures are
// returned.
func (s *Scheduler) SnoozeReminder(ctx context.Context, id string, minutes int) (*SnoozeResult, error) {
	if minutes <= 0 {
		return nil, invalid("minutes", "must be positive, got %d", minutes)
	}
	r, err := s.reminders.GetReminder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("snooze %s: %w", id, err)
	}
	if r == nil || r.Deleted {
		return nil, fmt.Errorf("snooze %s: %w", id, ErrNotFound)
	}

	now := s.clock.Now()
	cur, err := s.currentTime(ctx, r, now)
	if err != nil {
		return nil, fmt.Errorf("snooze %s: %w", id, err)
	}
	newTime := cur.Add(time.Duration(minutes) * time.Minute)

	updated := r.Clone()
	if name, ok := r.RoutineToken(); ok && updated.RoutineAnchor == "" {
		if canon, ok := schedule.CanonicalAnchor(name); ok {
			updated.RoutineAnchor = canon
		}
	}
	updated.ReminderTime = newTime.Format(time.RFC3339)
	updated.Status = reminder.StatusSnoozed
	if err := s.reminders.UpdateReminder(ctx, updated); err != nil {
		return nil, fmt.Errorf("snooze %s: %w", id, err)
	}

	out := &SnoozeResult{Reminder: updated}

	pattern, err := s.snooze.RecordSnooze(ctx, updated, newTime)
	if err != nil {
		out.Diagnostics = append(out.Diagnostics, Diagnostic{Step: StepSnoozePattern, ReminderID: id, Err: err})
		s.logger.Warn("record snooze", zap.String("reminder_id", id), zap.Error(err))
	} else {
		out.Pattern = pattern
		out.Diagnostics = append(out.Diagnostics, pattern.Diagnostics...)
	}

	res, err := s.ScheduleReminder(ctx, updated, ScheduleOptions{OverrideDate: &newTime, IgnoreLeadTime: true})
	if err != nil {
		out.Diagnostics = append(out.Diagnostics, Diagnostic{Step: StepSchedule, ReminderID: id, Err: err})
		s.logger.Warn("reschedule snoozed reminder", zap.String("reminder_id", id), zap.Error(err))
	} else {
		out.Schedule = res
	}
	return out, nil
}

// SweepResult summarises a RescheduleAll pass.
type SweepResult struct {
	Scheduled int          `json:"scheduled"`
	Skipped   int          `json:"skipped"`
	Failures  []Diagnostic `json:"failures,omitempty"`
}

// RescheduleAll schedules every pending or snoozed reminder from persisted
// state. A failure on one reminder does not stop the rest.
func (s *Scheduler) RescheduleAll(ctx context.Context) (*SweepResult, error) {
	list, err := s.reminders.ListSchedulable(ctx)
	if err != nil {
		return nil, fmt.Errorf("reschedule all: %w", err)
	}

	out := &SweepResult{}
	for i := range list {
		r := &list[i]
		res, err := s.ScheduleReminder(ctx, r, ScheduleOptions{})
		switch {
		case err != nil:
			out.Failures = append(out.Failures, Diagnostic{Step: StepSchedule, ReminderID: r.ID, Err: err})
			s.metrics.SweepFailure()
			s.logger.Warn("reschedule reminder", zap.String("reminder_id", r.ID), zap.Error(err))
		case res.Skipped:
			out.Skipped++
		default:
			out.Scheduled++
		}
	}
	s.logger.Info("reschedule sweep",
		zap.Int("scheduled", out.Scheduled),
		zap.Int("skipped", out.Skipped),
		zap.Int("failed", len(out.Failures)),
	)
	return out, nil
}

// AnchorSweep is the outcome of RescheduleForAnchor.
type AnchorSweep struct {
	Anchor      string       `json:"anchor"`
	TimeOfDay   string       `json:"time_of_day"`
	Updated     []string     `json:"updated,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Sweep       *SweepResult `json:"sweep,omitempty"`
}

// RescheduleForAnchor moves every future reminder bound to anchor to the new
// time of day on its original date, reschedules each, and finishes with a
// full RescheduleAll pass.
func (s *Scheduler) RescheduleForAnchor(ctx context.Context, anchor, timeOfDay string) (*AnchorSweep, error) {
	tod, ok := timeofday.Parse(timeOfDay)
	if !ok {
		return nil, invalid("time_of_day", "invalid time of day %q", timeOfDay)
	}
	list, err := s.reminders.ListByAnchor(ctx, anchor)
	if err != nil {
		return nil, fmt.Errorf("reschedule anchor %s: %w", anchor, err)
	}

	now := s.clock.Now()
	out := &AnchorSweep{Anchor: anchor, TimeOfDay: tod.String()}
	for i := range list {
		r := &list[i]
		t, ok := schedule.ParseTimestamp(r.ReminderTime, now.Location())
		if !ok || !t.After(now) {
			continue
		}
		r.ReminderTime = timeofday.Combine(t, tod).Format(time.RFC3339)
		if err := s.reminders.UpdateReminder(ctx, r); err != nil {
			out.Diagnostics = append(out.Diagnostics, Diagnostic{Step: StepAnchorUpdate, ReminderID: r.ID, Err: err})
			continue
		}
		out.Updated = append(out.Updated, r.ID)
		if _, err := s.ScheduleReminder(ctx, r, ScheduleOptions{}); err != nil {
			out.Diagnostics = append(out.Diagnostics, Diagnostic{Step: StepSchedule, ReminderID: r.ID, Err: err})
		}
	}
	sort.Strings(out.Updated)

	sweep, err := s.RescheduleAll(ctx)
	if err != nil {
		return out, err
	}
	out.Sweep = sweep
	return out, nil
}

func reminderContent(r *reminder.Reminder, target time.Time) notify.Content {
	body := r.Description
	if body == "" {
		body = "Due at " + target.Format("15:04")
	}
	return notify.Content{
		Title: r.Title,
		Body:  body,
		Data: map[string]any{
			"reminder_id": r.ID,
			"category":    string(r.Category),
			"due_at":      target.Format(time.RFC3339),
		},
	}
}
