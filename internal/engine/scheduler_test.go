package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/cadence/internal/notify"
	"github.com/lazypower/cadence/internal/reminder"
)

func TestScheduleTwiceKeepsOneLiveNotification(t *testing.T) {
	h := newHarness(t, monday)
	ctx := context.Background()
	r := h.seed(t, reminder.Reminder{Category: reminder.CategoryAppointments, ReminderTime: "2026-03-02T10:00:00Z"})

	first, err := h.eng.Scheduler.ScheduleReminder(ctx, r, ScheduleOptions{})
	require.NoError(t, err)
	second, err := h.eng.Scheduler.ScheduleReminder(ctx, r, ScheduleOptions{})
	require.NoError(t, err)

	assert.NotEqual(t, first.NotificationID, second.NotificationID)
	assert.Len(t, h.notifier.Live(), 1)
	assert.Contains(t, h.notifier.Cancelled, first.NotificationID)

	mapped, err := h.db.GetMapping(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, second.NotificationID, mapped)
}

func TestSchedulePastTargetIsSkipped(t *testing.T) {
	h := newHarness(t, monday)
	ctx := context.Background()
	r := h.seed(t, reminder.Reminder{ReminderTime: "2026-03-02T08:00:00Z"})

	res, err := h.eng.Scheduler.ScheduleReminder(ctx, r, ScheduleOptions{})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, SkipPast, res.SkipReason)
	assert.False(t, res.Scheduled())
	assert.Empty(t, h.notifier.Live())

	mapped, err := h.db.GetMapping(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, mapped)
}

func TestScheduleSubtractsLeadTime(t *testing.T) {
	h := newHarness(t, monday)
	ctx := context.Background()

	r := h.seed(t, reminder.Reminder{ReminderTime: "2026-03-02T10:00:00Z", NotifyBeforeMinutes: 30})
	res, err := h.eng.Scheduler.ScheduleReminder(ctx, r, ScheduleOptions{})
	require.NoError(t, err)
	assertTime(t, time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC), res.FireAt)
	assertTime(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), res.Target)

	// Lead time pushes the fire time into the past.
	late := h.seed(t, reminder.Reminder{ReminderTime: "2026-03-02T08:50:00Z", NotifyBeforeMinutes: 30})
	res, err = h.eng.Scheduler.ScheduleReminder(ctx, late, ScheduleOptions{})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
}

func TestScheduleResolvesRoutineToken(t *testing.T) {
	h := newHarness(t, monday)
	ctx := context.Background()

	breakfast := h.seed(t, reminder.Reminder{ReminderTime: "routine:Breakfast"})
	res, err := h.eng.Scheduler.ScheduleReminder(ctx, breakfast, ScheduleOptions{})
	require.NoError(t, err)
	assertTime(t, time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC), res.FireAt)

	lunch := h.seed(t, reminder.Reminder{ReminderTime: "routine:lunch"})
	res, err = h.eng.Scheduler.ScheduleReminder(ctx, lunch, ScheduleOptions{})
	require.NoError(t, err)
	assertTime(t, time.Date(2026, 3, 2, 12, 30, 0, 0, time.UTC), res.FireAt)
}

func TestScheduleOverrideDateWins(t *testing.T) {
	h := newHarness(t, monday)
	r := h.seed(t, reminder.Reminder{ReminderTime: "2026-03-02T10:00:00Z"})
	override := time.Date(2026, 3, 6, 7, 0, 0, 0, time.UTC)

	res, err := h.eng.Scheduler.ScheduleReminder(context.Background(), r, ScheduleOptions{OverrideDate: &override})
	require.NoError(t, err)
	assertTime(t, override, res.FireAt)
}

func TestScheduleUnparseableTime(t *testing.T) {
	h := newHarness(t, monday)
	r := h.seed(t, reminder.Reminder{ReminderTime: "whenever"})

	_, err := h.eng.Scheduler.ScheduleReminder(context.Background(), r, ScheduleOptions{})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, h.notifier.Live())
}

func TestScheduleDecoratesWithTier(t *testing.T) {
	h := newHarness(t, monday)
	r := h.seed(t, reminder.Reminder{Title: "Dentist", Category: reminder.CategoryAppointments, ReminderTime: "2026-03-02T10:00:00Z"})

	res, err := h.eng.Scheduler.ScheduleReminder(context.Background(), r, ScheduleOptions{})
	require.NoError(t, err)
	n, ok := h.notifier.Get(res.NotificationID)
	require.True(t, ok)
	assert.Equal(t, "T2", n.Content.TierID)
	assert.Equal(t, "high", n.Content.Priority)
	assert.Equal(t, "Dentist", n.Content.Title)
	assert.Equal(t, r.ID, n.Content.Data["reminder_id"])
	assert.Nil(t, res.Escalation)
}

func TestCancelToleratesAlreadyGone(t *testing.T) {
	h := newHarness(t, monday)
	ctx := context.Background()
	r := h.seed(t, reminder.Reminder{ReminderTime: "2026-03-02T10:00:00Z"})

	require.NoError(t, h.eng.Scheduler.CancelScheduledReminder(ctx, r.ID), "no mapping is a no-op")

	res, err := h.eng.Scheduler.ScheduleReminder(ctx, r, ScheduleOptions{})
	require.NoError(t, err)
	// The notification fired and vanished from the platform.
	require.NoError(t, h.notifier.Cancel(ctx, res.NotificationID))

	require.NoError(t, h.eng.Scheduler.CancelScheduledReminder(ctx, r.ID))
	mapped, _ := h.db.GetMapping(ctx, r.ID)
	assert.Empty(t, mapped)
}

func TestCancelSurfacesPlatformErrors(t *testing.T) {
	h := newHarness(t, monday)
	ctx := context.Background()
	r := h.seed(t, reminder.Reminder{ReminderTime: "2026-03-02T10:00:00Z"})
	_, err := h.eng.Scheduler.ScheduleReminder(ctx, r, ScheduleOptions{})
	require.NoError(t, err)

	h.notifier.CancelErr = assert.AnError
	assert.ErrorIs(t, h.eng.Scheduler.CancelScheduledReminder(ctx, r.ID), assert.AnError)
}

func TestNextOccurrence(t *testing.T) {
	now := monday
	at := func(d, hh int) time.Time { return time.Date(2026, 3, d, hh, 0, 0, 0, time.UTC) }
	daily := reminder.RepeatRule{FrequencyType: reminder.FrequencyDaily}
	weekly := func(days ...string) reminder.RepeatRule {
		return reminder.RepeatRule{FrequencyType: reminder.FrequencyWeekly, RepeatDays: days}
	}

	tests := []struct {
		name string
		rule reminder.RepeatRule
		cur  time.Time
		want time.Time
		ok   bool
	}{
		{"daily from today", daily, at(2, 9), at(3, 9), true},
		{"daily catches up", daily, time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC), at(2, 9), true},
		{"daily earlier today", daily, at(2, 7), at(3, 7), true},
		{"weekly same weekday", weekly("Mon"), at(2, 9), at(9, 9), true},
		{"weekly nearest listed day", weekly("mon", "Wednesday"), at(2, 9), at(4, 9), true},
		{"weekly no days", weekly(), at(2, 9), at(9, 9), true},
		{"weekly unknown days", weekly("someday"), at(2, 9), at(9, 9), true},
		{"weekly catches up", weekly("Mon"), time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC), at(2, 9), true},
		{"once", reminder.RepeatRule{FrequencyType: reminder.FrequencyOnce}, at(2, 9), time.Time{}, false},
		{"custom", reminder.RepeatRule{FrequencyType: reminder.FrequencyCustom}, at(2, 9), time.Time{}, false},
		{"none", reminder.RepeatRule{FrequencyType: reminder.FrequencyNone}, at(2, 9), time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextOccurrence(tt.rule, tt.cur, now)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assertTime(t, tt.want, got)
			assert.True(t, got.After(now))
			assert.Equal(t, tt.cur.Format("15:04:05"), got.Format("15:04:05"))
		})
	}
}

func TestComputeNextOccurrenceWeeklyMondayIsNextWeek(t *testing.T) {
	h := newHarness(t, monday)
	r := h.seed(t, reminder.Reminder{
		ReminderTime: "2026-03-02T09:00:00Z",
		Repeat:       reminder.RepeatRule{FrequencyType: reminder.FrequencyWeekly, RepeatDays: []string{"Mon"}},
	})
	next, ok, err := h.eng.Scheduler.ComputeNextOccurrence(context.Background(), r)
	require.NoError(t, err)
	require.True(t, ok)
	assertTime(t, time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC), next)
}

func TestComputeNextOccurrenceRoutineToken(t *testing.T) {
	h := newHarness(t, monday)
	r := h.seed(t, reminder.Reminder{
		ReminderTime: "routine:Dinner",
		Repeat:       reminder.RepeatRule{FrequencyType: reminder.FrequencyDaily},
	})
	next, ok, err := h.eng.Scheduler.ComputeNextOccurrence(context.Background(), r)
	require.NoError(t, err)
	require.True(t, ok)
	assertTime(t, time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC), next)
}

func TestScheduleNextOccurrence(t *testing.T) {
	h := newHarness(t, monday)
	ctx := context.Background()

	once := h.seed(t, reminder.Reminder{ReminderTime: "2026-03-02T09:00:00Z", Repeat: reminder.RepeatRule{FrequencyType: reminder.FrequencyOnce}})
	occ, err := h.eng.Scheduler.ScheduleNextOccurrence(ctx, once)
	require.NoError(t, err)
	assert.Nil(t, occ)

	daily := h.seed(t, reminder.Reminder{
		ReminderTime: "routine:Breakfast",
		Status:       reminder.StatusTaken,
		Repeat:       reminder.RepeatRule{FrequencyType: reminder.FrequencyDaily},
	})
	occ, err = h.eng.Scheduler.ScheduleNextOccurrence(ctx, daily)
	require.NoError(t, err)
	require.NotNil(t, occ)
	assert.Equal(t, "2026-03-03T08:00:00Z", occ.Reminder.ReminderTime)
	assert.Equal(t, "Breakfast", occ.Reminder.RoutineAnchor)
	assert.True(t, occ.Schedule.Scheduled())

	stored, err := h.db.GetReminder(ctx, daily.ID)
	require.NoError(t, err)
	assert.Equal(t, reminder.StatusPending, stored.Status)
	assert.Equal(t, "2026-03-03T08:00:00Z", stored.ReminderTime)
}

func TestSnoozeReminderExample(t *testing.T) {
	h := newHarness(t, monday)
	ctx := context.Background()
	r := h.seed(t, reminder.Reminder{ReminderTime: "2026-03-02T09:00:00Z", NotifyBeforeMinutes: 10})

	res, err := h.eng.Scheduler.SnoozeReminder(ctx, r.ID, 15)
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, "2026-03-02T09:15:00Z", res.Reminder.ReminderTime)
	assert.Equal(t, reminder.StatusSnoozed, res.Reminder.Status)

	live := h.primary(r.ID)
	require.Len(t, live, 1)
	assertTime(t, time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC), live[0].At)

	stored, _ := h.db.GetReminder(ctx, r.ID)
	assert.Equal(t, reminder.StatusSnoozed, stored.Status)
	assert.Equal(t, "2026-03-02T09:15:00Z", stored.ReminderTime)
}

func TestSnoozeSurvivesRescheduleSweep(t *testing.T) {
	h := newHarness(t, time.Date(2026, 3, 2, 8, 50, 0, 0, time.UTC))
	ctx := context.Background()
	r := h.seed(t, reminder.Reminder{ReminderTime: "2026-03-02T09:00:00Z", NotifyBeforeMinutes: 30})

	_, err := h.eng.Scheduler.SnoozeReminder(ctx, r.ID, 15)
	require.NoError(t, err)

	sweep, err := h.eng.Scheduler.RescheduleAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sweep.Scheduled)
	assert.Zero(t, sweep.Skipped)

	live := h.primary(r.ID)
	require.Len(t, live, 1)
	assertTime(t, time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC), live[0].At)

	// The lead time applies again once the reminder is pending.
	stored, _ := h.db.GetReminder(ctx, r.ID)
	stored.Status = reminder.StatusPending
	res, err := h.eng.Scheduler.ScheduleReminder(ctx, stored, ScheduleOptions{})
	require.NoError(t, err)
	assertTime(t, time.Date(2026, 3, 2, 8, 45, 0, 0, time.UTC), res.FireAt)
}

func TestSnoozeReminderErrors(t *testing.T) {
	h := newHarness(t, monday)
	ctx := context.Background()

	_, err := h.eng.Scheduler.SnoozeReminder(ctx, "missing", 10)
	assert.ErrorIs(t, err, ErrNotFound)

	r := h.seed(t, reminder.Reminder{ReminderTime: "2026-03-02T09:00:00Z"})
	_, err = h.eng.Scheduler.SnoozeReminder(ctx, r.ID, 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSnoozeScheduleFailureIsDiagnostic(t *testing.T) {
	h := newHarness(t, monday)
	r := h.seed(t, reminder.Reminder{ReminderTime: "2026-03-02T09:00:00Z"})
	h.notifier.ScheduleErr = assert.AnError

	res, err := h.eng.Scheduler.SnoozeReminder(context.Background(), r.ID, 5)
	require.NoError(t, err)
	assert.True(t, HasStep(res.Diagnostics, StepSchedule))
	assert.Equal(t, reminder.StatusSnoozed, res.Reminder.Status)
}

func TestRescheduleAllIsolatesFailures(t *testing.T) {
	h := newHarness(t, monday)
	ctx := context.Background()

	h.seed(t, reminder.Reminder{Title: "a", ReminderTime: "2026-03-02T10:00:00Z"})
	bad := h.seed(t, reminder.Reminder{Title: "bad", ReminderTime: "2026-03-02T11:00:00Z"})
	h.seed(t, reminder.Reminder{Title: "c", ReminderTime: "2026-03-02T12:00:00Z", Status: reminder.StatusSnoozed})
	h.seed(t, reminder.Reminder{Title: "past", ReminderTime: "2026-03-01T12:00:00Z"})
	h.seed(t, reminder.Reminder{Title: "done", ReminderTime: "2026-03-02T12:00:00Z", Status: reminder.StatusTaken})
	h.notifier.FailWhen = func(c notify.Content) bool { return c.Title == "bad" }

	sweep, err := h.eng.Scheduler.RescheduleAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sweep.Scheduled)
	assert.Equal(t, 1, sweep.Skipped)
	require.Len(t, sweep.Failures, 1)
	assert.Equal(t, bad.ID, sweep.Failures[0].ReminderID)

	// Re-running converges on the same live set.
	again, err := h.eng.Scheduler.RescheduleAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, sweep.Scheduled, again.Scheduled)
	assert.Len(t, h.notifier.Live(), 2)
}
