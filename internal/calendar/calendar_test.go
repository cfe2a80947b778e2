package calendar

import (
	"bytes"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/cadence/internal/reminder"
	"github.com/lazypower/cadence/internal/schedule"
)

var now = time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)

func fixtures() []reminder.Reminder {
	return []reminder.Reminder{
		{
			ID: "med", Title: "Metformin", Category: reminder.CategoryMedications,
			Status:       reminder.StatusPending,
			ReminderTime: "routine:Dinner",
			Repeat:       reminder.RepeatRule{FrequencyType: reminder.FrequencyDaily},
		},
		{
			ID: "dentist", Title: "Dentist", Category: reminder.CategoryAppointments,
			Status:       reminder.StatusPending,
			ReminderTime: "2026-03-05T14:00:00Z",
			Buffers:      []int{120, 1440},
		},
		{
			ID: "yoga", Title: "Yoga", Category: reminder.CategoryOther,
			Status:       reminder.StatusPending,
			ReminderTime: "2026-03-02T07:00:00Z",
			Repeat:       reminder.RepeatRule{FrequencyType: reminder.FrequencyWeekly, RepeatDays: []string{"Mon", "thu"}},
		},
		{ID: "gone", Title: "Gone", Category: reminder.CategoryOther, ReminderTime: "2026-03-03T07:00:00Z", Deleted: true},
	}
}

func TestRule(t *testing.T) {
	assert.Nil(t, Rule(reminder.RepeatRule{FrequencyType: reminder.FrequencyOnce}))
	assert.Equal(t, "FREQ=DAILY", Rule(reminder.RepeatRule{FrequencyType: reminder.FrequencyDaily}).RRuleString())

	weekly := Rule(reminder.RepeatRule{FrequencyType: reminder.FrequencyWeekly, RepeatDays: []string{"Mon", "monday", "Fri"}})
	require.NotNil(t, weekly)
	assert.Len(t, weekly.Byweekday, 2)
}

func TestUpcoming(t *testing.T) {
	occ, err := Upcoming(fixtures(), schedule.DefaultAnchors(), now, now.AddDate(0, 0, 4))
	require.NoError(t, err)

	var got []string
	for _, o := range occ {
		got = append(got, o.ReminderID+"@"+o.At.UTC().Format("01-02T15:04"))
	}
	assert.Equal(t, []string{
		"med@03-02T18:00",
		"med@03-03T18:00",
		"med@03-04T18:00",
		"yoga@03-05T07:00",
		"dentist@03-05T14:00",
		"med@03-05T18:00",
	}, got)
}

func TestExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, fixtures(), schedule.DefaultAnchors(), now))
	out := buf.String()

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "PRODID:"+ProductID)
	assert.Contains(t, out, "RRULE:FREQ=DAILY")
	assert.Contains(t, out, "TRIGGER:-PT1440M")
	assert.Contains(t, out, "DTSTART:20260305T140000Z")
	assert.NotContains(t, out, "VTIMEZONE")
	assert.NotContains(t, out, "Gone")

	cal, err := ical.NewDecoder(strings.NewReader(out)).Decode()
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 3)

	byUID := map[string]ical.Event{}
	for _, ev := range events {
		uid, err := ev.Props.Text(ical.PropUID)
		require.NoError(t, err)
		byUID[uid] = ev
	}
	dentist, ok := byUID["dentist@cadence"]
	require.True(t, ok)
	start, err := dentist.DateTimeStart(time.UTC)
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)))
	// 0, 120 and 1440 minutes before.
	assert.Len(t, dentist.Children, 3)

	med := byUID["med@cadence"]
	start, err = med.DateTimeStart(time.UTC)
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)))
}

func TestLeadTimes(t *testing.T) {
	r := &reminder.Reminder{NotifyBeforeMinutes: 120, Buffers: []int{1440, 120, -5}}
	assert.Equal(t, []int{120, 1440}, leadTimes(r))
}

func TestExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := Export(&buf, nil, schedule.DefaultAnchors(), now)
	assert.ErrorIs(t, err, ErrNoEvents)
	assert.Zero(t, buf.Len())
}

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func dailyWalk() []reminder.Reminder {
	return []reminder.Reminder{{
		ID: "walk", Title: "Walk", Category: reminder.CategoryOther,
		Status:       reminder.StatusPending,
		ReminderTime: "2026-03-06T14:00:00Z",
		Repeat:       reminder.RepeatRule{FrequencyType: reminder.FrequencyDaily},
	}}
}

func TestExportUsesConfiguredTimezone(t *testing.T) {
	loc := newYork(t)
	at := time.Date(2026, 3, 6, 8, 30, 0, 0, loc)

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, dailyWalk(), schedule.DefaultAnchors(), at))
	out := buf.String()

	assert.Contains(t, out, "DTSTART;TZID=America/New_York:20260306T090000")
	assert.Contains(t, out, "BEGIN:VTIMEZONE")
	assert.Contains(t, out, "RRULE:FREQ=YEARLY;BYMONTH=3;BYDAY=2SU")
	assert.Contains(t, out, "RRULE:FREQ=YEARLY;BYMONTH=11;BYDAY=1SU")
	assert.Contains(t, out, "TZOFFSETFROM:-0500")
	assert.Contains(t, out, "TZOFFSETTO:-0400")

	cal, err := ical.NewDecoder(strings.NewReader(out)).Decode()
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 1)
	start, err := events[0].DateTimeStart(time.UTC)
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2026, 3, 6, 14, 0, 0, 0, time.UTC)), start.String())
}

func TestUpcomingKeepsWallClockAcrossDST(t *testing.T) {
	loc := newYork(t)
	from := time.Date(2026, 3, 6, 8, 30, 0, 0, loc)

	occ, err := Upcoming(dailyWalk(), schedule.DefaultAnchors(), from, from.AddDate(0, 0, 4))
	require.NoError(t, err)

	var local, utc []string
	for _, o := range occ {
		local = append(local, o.At.In(loc).Format("01-02T15:04"))
		utc = append(utc, o.At.UTC().Format("01-02T15:04"))
	}
	assert.Equal(t, []string{"03-06T09:00", "03-07T09:00", "03-08T09:00", "03-09T09:00"}, local)
	assert.Equal(t, []string{"03-06T14:00", "03-07T14:00", "03-08T13:00", "03-09T13:00"}, utc)
}

func TestTimezoneWithoutTransitions(t *testing.T) {
	assert.Nil(t, timezone(time.UTC, 2026))

	tz := timezone(time.FixedZone("IST", 5*3600+1800), 2026)
	require.NotNil(t, tz)
	require.Len(t, tz.Children, 1)
	obs := tz.Children[0]
	assert.Equal(t, ical.CompTimezoneStandard, obs.Name)
	assert.Equal(t, "+0530", obs.Props.Get(ical.PropTimezoneOffsetTo).Value)
	assert.Nil(t, obs.Props.Get(ical.PropRecurrenceRule))
}
