// Package calendar exports reminders as an iCalendar feed and expands their
// recurrences.
package calendar

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/lazypower/cadence/internal/reminder"
	"github.com/lazypower/cadence/internal/schedule"
	"github.com/lazypower/cadence/internal/timeofday"
)

// ErrNoEvents is returned by Export when no reminder has a resolvable time.
var ErrNoEvents = errors.New("no reminders to export")

// ProductID identifies the exporter in PRODID.
const ProductID = "-//cadence//reminders//EN"

const dateTimeFormat = "20060102T150405"

var weekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// Start resolves when a reminder is next due: its timestamp, or the next
// occurrence of its routine token's anchor. The result is expressed in now's
// location so recurrences expand on that location's wall clock.
func Start(r *reminder.Reminder, anchors map[string]string, now time.Time) (time.Time, bool) {
	if name, ok := r.RoutineToken(); ok {
		canon, ok := schedule.CanonicalAnchor(name)
		if !ok {
			return time.Time{}, false
		}
		tod, ok := timeofday.Parse(anchors[canon])
		if !ok {
			return time.Time{}, false
		}
		return timeofday.NextOccurrence(now, tod).In(now.Location()), true
	}
	t, ok := schedule.ParseTimestamp(r.ReminderTime, now.Location())
	if !ok {
		return time.Time{}, false
	}
	return t.In(now.Location()), true
}

// Rule converts a reminder's repeat rule into an RRULE option. Reminders that
// do not repeat daily or weekly return nil.
func Rule(rule reminder.RepeatRule) *rrule.ROption {
	switch rule.FrequencyType {
	case reminder.FrequencyDaily:
		return &rrule.ROption{Freq: rrule.DAILY}
	case reminder.FrequencyWeekly:
		opt := &rrule.ROption{Freq: rrule.WEEKLY}
		seen := map[time.Weekday]bool{}
		for _, d := range rule.RepeatDays {
			wd, ok := timeofday.ParseWeekday(d)
			if !ok || seen[wd] {
				continue
			}
			seen[wd] = true
			opt.Byweekday = append(opt.Byweekday, weekdays[wd])
		}
		return opt
	default:
		return nil
	}
}

// Occurrence is one due time of a reminder.
type Occurrence struct {
	ReminderID string    `json:"reminder_id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	At         time.Time `json:"at"`
}

// Upcoming expands every reminder's due times within [from, until], sorted by
// time. One-off reminders contribute at most their single start.
func Upcoming(reminders []reminder.Reminder, anchors map[string]string, from, until time.Time) ([]Occurrence, error) {
	var out []Occurrence
	for i := range reminders {
		r := &reminders[i]
		if r.Deleted || !r.Status.Schedulable() {
			continue
		}
		start, ok := Start(r, anchors, from)
		if !ok {
			continue
		}
		opt := Rule(r.Repeat)
		if opt == nil {
			if !start.Before(from) && !start.After(until) {
				out = append(out, Occurrence{ReminderID: r.ID, Title: r.Title, Category: string(r.Category), At: start})
			}
			continue
		}
		opt.Dtstart = start
		rule, err := rrule.NewRRule(*opt)
		if err != nil {
			return nil, fmt.Errorf("recurrence for %s: %w", r.ID, err)
		}
		for _, at := range rule.Between(from, until, true) {
			out = append(out, Occurrence{ReminderID: r.ID, Title: r.Title, Category: string(r.Category), At: at})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}

// Export writes reminders as a VCALENDAR. Each reminder becomes a VEVENT at
// its next due time with an RRULE when it recurs and one VALARM per lead time.
// Start times carry now's location as a TZID, with a matching VTIMEZONE, so a
// daily 09:00 stays at 09:00 across DST changes. A UTC now writes UTC times
// and time.Local writes floating times.
func Export(w io.Writer, reminders []reminder.Reminder, anchors map[string]string, now time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, ProductID)
	cal.Props.SetText(ical.PropVersion, "2.0")
	if tz := timezone(now.Location(), now.Year()); tz != nil {
		cal.Children = append(cal.Children, tz)
	}

	for i := range reminders {
		r := &reminders[i]
		if r.Deleted {
			continue
		}
		start, ok := Start(r, anchors, now)
		if !ok {
			continue
		}
		cal.Children = append(cal.Children, event(r, start, now).Component)
	}
	if len(cal.Events()) == 0 {
		return ErrNoEvents
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func event(r *reminder.Reminder, start, now time.Time) *ical.Event {
	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, r.ID+"@cadence")
	ev.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ev.Props.Set(dateTimeProp(ical.PropDateTimeStart, start))
	ev.Props.SetText(ical.PropSummary, r.Title)
	if r.Description != "" {
		ev.Props.SetText(ical.PropDescription, r.Description)
	}
	ev.Props.SetText(ical.PropCategories, string(r.Category))
	if opt := Rule(r.Repeat); opt != nil {
		ev.Props.SetRecurrenceRule(opt)
	}

	for _, minutes := range leadTimes(r) {
		alarm := ical.NewComponent(ical.CompAlarm)
		alarm.Props.SetText(ical.PropAction, "DISPLAY")
		alarm.Props.SetText(ical.PropDescription, r.Title)
		trigger := ical.NewProp(ical.PropTrigger)
		trigger.Value = fmt.Sprintf("-PT%dM", minutes)
		alarm.Props.Set(trigger)
		ev.Children = append(ev.Children, alarm)
	}
	return ev
}

// dateTimeProp formats t in its own location: UTC with a Z suffix, Local as
// a floating time, any other zone with a TZID parameter.
func dateTimeProp(name string, t time.Time) *ical.Prop {
	prop := ical.NewProp(name)
	switch loc := t.Location(); loc {
	case time.UTC:
		prop.Value = t.Format(dateTimeFormat + "Z")
	case time.Local:
		prop.Value = t.Format(dateTimeFormat)
	default:
		prop.Params.Set(ical.PropTimezoneID, loc.String())
		prop.Value = t.Format(dateTimeFormat)
	}
	return prop
}

// leadTimes merges NotifyBeforeMinutes with the buffer list, deduplicated
// and ascending. A reminder with neither alarms at its start.
func leadTimes(r *reminder.Reminder) []int {
	set := map[int]bool{r.NotifyBeforeMinutes: true}
	for _, b := range r.Buffers {
		if b >= 0 {
			set[b] = true
		}
	}
	out := make([]int, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}
