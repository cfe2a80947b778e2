package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

// timezone builds a VTIMEZONE for loc from the transitions it has in year.
// Each transition becomes a yearly observance on the same nth weekday of its
// month. UTC and Local need no definition and return nil.
func timezone(loc *time.Location, year int) *ical.Component {
	if loc == nil || loc == time.UTC || loc == time.Local {
		return nil
	}
	tz := ical.NewComponent(ical.CompTimezone)
	tz.Props.SetText(ical.PropTimezoneID, loc.String())

	begin := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	stop := begin.AddDate(1, 0, 0)
	for at := begin; ; {
		_, next := at.ZoneBounds()
		if next.IsZero() || !next.Before(stop) {
			break
		}
		tz.Children = append(tz.Children, observance(next, true))
		at = next
	}
	if len(tz.Children) == 0 {
		tz.Children = append(tz.Children, observance(begin, false))
	}
	return tz
}

// observance describes the zone that takes effect at t. When recurring, the
// rule repeats yearly on t's nth weekday.
func observance(t time.Time, recurring bool) *ical.Component {
	name, to := t.Zone()
	_, from := t.Add(-time.Second).Zone()
	if !recurring {
		from = to
	}

	kind := ical.CompTimezoneStandard
	if t.IsDST() {
		kind = ical.CompTimezoneDaylight
	}
	obs := ical.NewComponent(kind)

	start := ical.NewProp(ical.PropDateTimeStart)
	start.Value = t.In(time.FixedZone("", from)).Format(dateTimeFormat)
	obs.Props.Set(start)
	obs.Props.SetText(ical.PropTimezoneName, name)

	offsetFrom := ical.NewProp(ical.PropTimezoneOffsetFrom)
	offsetFrom.Value = utcOffset(from)
	obs.Props.Set(offsetFrom)
	offsetTo := ical.NewProp(ical.PropTimezoneOffsetTo)
	offsetTo.Value = utcOffset(to)
	obs.Props.Set(offsetTo)

	if recurring {
		rule := ical.NewProp(ical.PropRecurrenceRule)
		rule.Value = fmt.Sprintf("FREQ=YEARLY;BYMONTH=%d;BYDAY=%s", int(t.Month()), nthWeekday(t))
		obs.Props.Set(rule)
	}
	return obs
}

// nthWeekday renders t's weekday position in its month, e.g. 2SU, or -1SU
// for the last one.
func nthWeekday(t time.Time) string {
	day := strings.ToUpper(t.Weekday().String()[:2])
	if t.AddDate(0, 0, 7).Month() != t.Month() {
		return "-1" + day
	}
	return fmt.Sprintf("%d%s", (t.Day()-1)/7+1, day)
}

// utcOffset formats seconds east of UTC as +HHMM.
func utcOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	return fmt.Sprintf("%c%02d%02d", sign, seconds/3600, seconds%3600/60)
}
