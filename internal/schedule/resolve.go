package schedule

import (
	"strings"
	"time"

	"github.com/lazypower/cadence/internal/reminder"
	"github.com/lazypower/cadence/internal/timeofday"
)

// weekdayDefault is the time used when input only names a weekday.
var weekdayDefault = timeofday.TimeOfDay{Hour: 9}

// timestampLayouts are tried in order. Layouts without a zone are read in the
// location of the reference time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-like timestamp string.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Resolve classifies raw input relative to now. The first matching rule wins:
// routine token, weekday name, timestamp, bare time of day, anchor name.
// Anything else, including empty input, is Unspecified.
func Resolve(raw string, now time.Time) Descriptor {
	input := strings.TrimSpace(raw)
	if input == "" {
		return Descriptor{Kind: Unspecified, Raw: raw}
	}

	if name, ok := reminder.ParseRoutineToken(input); ok {
		return Descriptor{Kind: Routine, Anchor: capitalize(name), Raw: raw}
	}

	if wd, ok := timeofday.ParseWeekday(input); ok {
		day := timeofday.NextWeekday(now, wd)
		return Descriptor{Kind: Specific, At: timeofday.Combine(day, weekdayDefault), Raw: raw}
	}

	if ts, ok := ParseTimestamp(input, now.Location()); ok {
		return Descriptor{Kind: Specific, At: ts, Raw: raw}
	}

	if tod, ok := timeofday.Parse(input); ok {
		return Descriptor{Kind: Specific, At: timeofday.Combine(now, tod), Raw: raw}
	}

	if name, ok := CanonicalAnchor(input); ok {
		return Descriptor{Kind: Routine, Anchor: name, Raw: raw}
	}

	return Descriptor{Kind: Unspecified, Raw: raw}
}
