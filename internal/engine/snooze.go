package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/lazypower/cadence/internal/clock"
	"github.com/lazypower/cadence/internal/metrics"
	"github.com/lazypower/cadence/internal/reminder"
	"github.com/lazypower/cadence/internal/schedule"
	"github.com/lazypower/cadence/internal/store"
	"github.com/lazypower/cadence/internal/timeofday"
)

const (
	DefaultSnoozeHistoryDays = 14
	DefaultSnoozePatternDays = 3
)

// SnoozeDetector notices when a reminder bound to an anchor keeps being
// snoozed to the same time and offers to move the anchor there.
type SnoozeDetector struct {
	repo        SnoozeRepository
	anchors     *AnchorStore
	prompter    Prompter
	historyDays int
	patternDays int
	clock       clock.Clock
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// PatternResult describes a RecordSnooze call.
type PatternResult struct {
	Recorded    bool          `json:"recorded"`
	Anchor      string        `json:"anchor,omitempty"`
	TimeOfDay   string        `json:"time_of_day,omitempty"`
	Dates       []string      `json:"dates,omitempty"`
	Prompted    bool          `json:"prompted"`
	Accepted    bool          `json:"accepted"`
	Update      *AnchorUpdate `json:"update,omitempty"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty"`
}

// RecordSnooze adds today to the history of (anchor, time of day of newTime)
// and, when each of the preceding pattern days is also present, offers an
// adaptive prompt at most once per entry per day. Reminders without a
// routine anchor are ignored.
func (d *SnoozeDetector) RecordSnooze(ctx context.Context, r *reminder.Reminder, newTime time.Time) (*PatternResult, error) {
	out := &PatternResult{}
	anchor, ok := schedule.CanonicalAnchor(r.RoutineAnchor)
	if !ok {
		return out, nil
	}

	now := d.clock.Now()
	today := timeofday.DateKey(now)
	tod := timeofday.Of(newTime.In(now.Location())).String()

	entry, err := d.repo.GetSnoozeEntry(ctx, anchor, tod)
	if err != nil {
		return nil, fmt.Errorf("record snooze: %w", err)
	}
	if entry == nil {
		entry = &store.SnoozeEntry{Anchor: anchor, TimeOfDay: tod}
	}
	if !slices.Contains(entry.Dates, today) {
		entry.Dates = append(entry.Dates, today)
	}
	slices.Sort(entry.Dates)
	if n := len(entry.Dates); n > d.historyDays {
		entry.Dates = entry.Dates[n-d.historyDays:]
	}

	trigger := d.patternHolds(entry.Dates, now) && entry.LastPrompted != today
	if trigger {
		entry.LastPrompted = today
	}
	if err := d.repo.PutSnoozeEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("record snooze: %w", err)
	}

	out.Recorded = true
	out.Anchor = anchor
	out.TimeOfDay = tod
	out.Dates = entry.Dates
	if !trigger {
		return out, nil
	}

	out.Prompted = true
	d.metrics.Prompt(OutcomeOffered)
	d.logger.Info("snooze pattern detected", zap.String("anchor", anchor), zap.String("time_of_day", tod))
	accepted, err := d.prompter.Offer(ctx, Offer{Anchor: anchor, TimeOfDay: tod, ReminderID: r.ID, Title: r.Title})
	if err != nil {
		out.Diagnostics = append(out.Diagnostics, Diagnostic{Step: StepPrompt, ReminderID: r.ID, Err: err})
		d.logger.Warn("offer anchor prompt", zap.String("anchor", anchor), zap.Error(err))
		return out, nil
	}
	if !accepted {
		return out, nil
	}

	d.metrics.Prompt(OutcomeAccepted)
	out.Accepted = true
	update, err := d.anchors.SetAnchor(ctx, anchor, tod)
	if err != nil {
		out.Diagnostics = append(out.Diagnostics, Diagnostic{Step: StepAnchorUpdate, ReminderID: r.ID, Err: err})
		return out, nil
	}
	out.Update = update
	return out, nil
}

// patternHolds reports whether each of the patternDays calendar days before
// now's date is in dates.
func (d *SnoozeDetector) patternHolds(dates []string, now time.Time) bool {
	for i := 1; i <= d.patternDays; i++ {
		if !slices.Contains(dates, timeofday.DateKey(now.AddDate(0, 0, -i))) {
			return false
		}
	}
	return true
}
