// Package timeofday normalizes wall-clock times of day and combines them with
// calendar dates. Everything here is pure; invalid input is reported with a
// false ok value rather than an error.
package timeofday

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layout is the canonical time-of-day layout, 24-hour.
const Layout = "15:04:05"

// DateLayout is the calendar-date key layout used by snooze history.
const DateLayout = "2006-01-02"

var todPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?\s*([aApP][mM])?$`)

// TimeOfDay is an hour/minute/second triple without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// String formats as HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Parse accepts H:MM, HH:MM and HH:MM:SS, each optionally followed by AM/PM.
// With a meridiem the hour must be 1-12; without one it must be 0-23.
func Parse(input string) (TimeOfDay, bool) {
	m := todPattern.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return TimeOfDay{}, false
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	second := 0
	if m[3] != "" {
		second, _ = strconv.Atoi(m[3])
	}
	if minute > 59 || second > 59 {
		return TimeOfDay{}, false
	}

	if meridiem := strings.ToUpper(m[4]); meridiem != "" {
		if hour < 1 || hour > 12 {
			return TimeOfDay{}, false
		}
		switch {
		case meridiem == "AM" && hour == 12:
			hour = 0
		case meridiem == "PM" && hour != 12:
			hour += 12
		}
	} else if hour > 23 {
		return TimeOfDay{}, false
	}

	return TimeOfDay{Hour: hour, Minute: minute, Second: second}, true
}

// Normalize returns input as HH:MM:SS, or false if it cannot be parsed.
func Normalize(input string) (string, bool) {
	t, ok := Parse(input)
	if !ok {
		return "", false
	}
	return t.String(), true
}

// Of extracts the wall-clock time of day of ts in its own location.
func Of(ts time.Time) TimeOfDay {
	return TimeOfDay{Hour: ts.Hour(), Minute: ts.Minute(), Second: ts.Second()}
}

// Combine keeps the calendar date of date (in date's location) and replaces
// its wall-clock time with tod.
func Combine(date time.Time, tod TimeOfDay) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), tod.Hour, tod.Minute, tod.Second, 0, date.Location())
}

// NextOccurrence returns the first instant strictly after now whose wall-clock
// time is tod: today if still ahead, otherwise tomorrow.
func NextOccurrence(now time.Time, tod TimeOfDay) time.Time {
	candidate := Combine(now, tod)
	if !candidate.After(now) {
		candidate = Combine(now.AddDate(0, 0, 1), tod)
	}
	return candidate
}

// NextWeekday returns ref moved forward to the next given weekday. A ref that
// already falls on that weekday moves a full week, never zero days.
func NextWeekday(ref time.Time, wd time.Weekday) time.Time {
	offset := (int(wd) - int(ref.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return ref.AddDate(0, 0, offset)
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday accepts full weekday names and common abbreviations in any case.
func ParseWeekday(s string) (time.Weekday, bool) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	return wd, ok
}

// DateKey formats the calendar date of ts.
func DateKey(ts time.Time) string {
	return ts.Format(DateLayout)
}
