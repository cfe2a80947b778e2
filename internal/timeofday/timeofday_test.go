package timeofday

import (
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"8:00", "08:00:00", true},
		{"08:00", "08:00:00", true},
		{"23:59:59", "23:59:59", true},
		{"0:05", "00:05:00", true},
		{"9:30 AM", "09:30:00", true},
		{"9:30pm", "21:30:00", true},
		{"12:00 AM", "00:00:00", true},
		{"12:15 PM", "12:15:00", true},
		{"07:45:10 pm", "19:45:10", true},
		{"  6:00  ", "06:00:00", true},
		{"24:00", "", false},
		{"13:00 PM", "", false},
		{"0:30 AM", "", false},
		{"10:60", "", false},
		{"10:00:60", "", false},
		{"10", "", false},
		{"ten", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Normalize(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Normalize(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNormalizeFixedPoint(t *testing.T) {
	for _, in := range []string{"1:02", "01:02", "01:02:03", "1:02 AM", "11:59 PM", "12:00 pm"} {
		once, ok := Normalize(in)
		if !ok {
			t.Fatalf("Normalize(%q) failed", in)
		}
		twice, ok := Normalize(once)
		if !ok || twice != once {
			t.Errorf("Normalize(%q) = %q, not a fixed point of %q", once, twice, in)
		}
	}
}

func TestCombine(t *testing.T) {
	loc := time.FixedZone("test", -5*60*60)
	date := time.Date(2026, 4, 10, 22, 15, 0, 0, loc)
	got := Combine(date, TimeOfDay{Hour: 7, Minute: 30})
	want := time.Date(2026, 4, 10, 7, 30, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("Combine = %v, want %v", got, want)
	}
	if got.Location() != loc {
		t.Errorf("location = %v, want %v", got.Location(), loc)
	}
}

func TestNextOccurrence(t *testing.T) {
	now := time.Date(2026, 4, 10, 8, 30, 0, 0, time.UTC)

	ahead := NextOccurrence(now, TimeOfDay{Hour: 12, Minute: 30})
	if want := time.Date(2026, 4, 10, 12, 30, 0, 0, time.UTC); !ahead.Equal(want) {
		t.Errorf("ahead = %v, want %v", ahead, want)
	}

	passed := NextOccurrence(now, TimeOfDay{Hour: 8})
	if want := time.Date(2026, 4, 11, 8, 0, 0, 0, time.UTC); !passed.Equal(want) {
		t.Errorf("passed = %v, want %v", passed, want)
	}

	exact := NextOccurrence(now, TimeOfDay{Hour: 8, Minute: 30})
	if want := time.Date(2026, 4, 11, 8, 30, 0, 0, time.UTC); !exact.Equal(want) {
		t.Errorf("exact = %v, want %v", exact, want)
	}
}

func TestNextWeekday(t *testing.T) {
	monday := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	if got := NextWeekday(monday, time.Monday); !got.Equal(monday.AddDate(0, 0, 7)) {
		t.Errorf("same weekday = %v, want next week", got)
	}
	if got := NextWeekday(monday, time.Wednesday); !got.Equal(monday.AddDate(0, 0, 2)) {
		t.Errorf("wednesday = %v, want +2 days", got)
	}
	if got := NextWeekday(monday, time.Sunday); !got.Equal(monday.AddDate(0, 0, 6)) {
		t.Errorf("sunday = %v, want +6 days", got)
	}
}

func TestParseWeekday(t *testing.T) {
	for in, want := range map[string]time.Weekday{
		"Monday": time.Monday, "mon": time.Monday, "TUES": time.Tuesday,
		"thu": time.Thursday, "Sat": time.Saturday, "sunday": time.Sunday,
	} {
		got, ok := ParseWeekday(in)
		if !ok || got != want {
			t.Errorf("ParseWeekday(%q) = (%v, %v), want %v", in, got, ok, want)
		}
	}
	if _, ok := ParseWeekday("someday"); ok {
		t.Error("ParseWeekday(someday) should fail")
	}
}

func TestDateKey(t *testing.T) {
	ts := time.Date(2026, 1, 5, 23, 59, 0, 0, time.UTC)
	if got := DateKey(ts); got != "2026-01-05" {
		t.Errorf("DateKey = %q, want 2026-01-05", got)
	}
}
