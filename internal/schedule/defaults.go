package schedule

import "github.com/lazypower/cadence/internal/reminder"

// DefaultAppointmentBuffers are minutes-before reminders for appointments:
// two hours and one day.
var DefaultAppointmentBuffers = []int{120, 1440}

// ApplyDefaults fills in category-specific repeat and buffer defaults.
// Medications without a repeat rule become daily, one dose per supplied dose
// time. Appointments get the default buffer list. Everything else that has no
// rule repeats never.
func ApplyDefaults(d reminder.Draft) reminder.Draft {
	noRule := d.Repeat == nil || d.Repeat.FrequencyType == "" || d.Repeat.FrequencyType == reminder.FrequencyNone

	switch d.Category {
	case reminder.CategoryMedications:
		if noRule {
			times := len(d.DoseTimes)
			if times == 0 {
				times = 1
			}
			d.Repeat = &reminder.RepeatRule{FrequencyType: reminder.FrequencyDaily, TimesPerDay: times}
		}
	case reminder.CategoryAppointments:
		if len(d.Buffers) == 0 {
			d.Buffers = append([]int(nil), DefaultAppointmentBuffers...)
		}
	}

	if d.Repeat == nil || d.Repeat.FrequencyType == "" {
		d.Repeat = &reminder.RepeatRule{FrequencyType: reminder.FrequencyNone}
	}
	return d
}
