// Package reminder holds the reminder record shared by the store, the
// scheduling engine and the HTTP/CLI surfaces.
package reminder

import (
	"strings"
)

// Category selects the notification tier of a reminder.
type Category string

const (
	CategoryMedications    Category = "medications"
	CategoryAppointments   Category = "appointments"
	CategoryImportantDates Category = "important_dates"
	CategoryOther          Category = "other"
)

// Status is the lifecycle state of a reminder.
type Status string

const (
	StatusPending Status = "pending"
	StatusSnoozed Status = "snoozed"
	StatusTaken   Status = "taken"
	StatusSkipped Status = "skipped"
	StatusMissed  Status = "missed"
)

// Schedulable reports whether a reminder in this status still needs a live
// notification.
func (s Status) Schedulable() bool {
	return s == StatusPending || s == StatusSnoozed
}

// Frequency is the repeat frequency of a reminder.
type Frequency string

const (
	FrequencyNone   Frequency = "none"
	FrequencyOnce   Frequency = "once"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyCustom Frequency = "custom"
)

// RepeatRule describes how a reminder recurs.
type RepeatRule struct {
	FrequencyType Frequency `json:"frequency_type" validate:"omitempty,oneof=none once daily weekly custom"`
	RepeatDays    []string  `json:"repeat_days,omitempty"`
	TimesPerDay   int       `json:"times_per_day,omitempty" validate:"gte=0,lte=24"`
}

// RoutinePrefix marks a ReminderTime bound to a routine anchor, e.g.
// "routine:Breakfast".
const RoutinePrefix = "routine:"

// Reminder is the persisted reminder row. ReminderTime holds either a
// routine token or an RFC 3339 timestamp.
type Reminder struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title" validate:"required,max=200"`
	Description         string     `json:"description,omitempty" validate:"max=2000"`
	Category            Category   `json:"category" validate:"required,oneof=medications appointments important_dates other"`
	Repeat              RepeatRule `json:"repeat"`
	NotifyBeforeMinutes int        `json:"notify_before_minutes" validate:"gte=0"`
	Buffers             []int      `json:"buffers,omitempty" validate:"dive,gte=0"`
	RoutineAnchor       string     `json:"routine_anchor,omitempty"`
	Status              Status     `json:"status" validate:"omitempty,oneof=pending snoozed taken skipped missed"`
	ReminderTime        string     `json:"reminder_time"`
	CaregiverID         string     `json:"caregiver_id,omitempty"`
	Deleted             bool       `json:"deleted,omitempty"`
	CreatedAt           int64      `json:"created_at"`
	UpdatedAt           int64      `json:"updated_at"`
}

// RoutineToken returns the anchor name of a "routine:<name>" ReminderTime.
func (r *Reminder) RoutineToken() (string, bool) {
	return ParseRoutineToken(r.ReminderTime)
}

// ParseRoutineToken extracts the anchor name of a routine token.
func ParseRoutineToken(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) <= len(RoutinePrefix) || !strings.EqualFold(s[:len(RoutinePrefix)], RoutinePrefix) {
		return "", false
	}
	return strings.TrimSpace(s[len(RoutinePrefix):]), true
}

// Clone returns a deep copy.
func (r *Reminder) Clone() *Reminder {
	c := *r
	if r.Repeat.RepeatDays != nil {
		c.Repeat.RepeatDays = append([]string(nil), r.Repeat.RepeatDays...)
	}
	if r.Buffers != nil {
		c.Buffers = append([]int(nil), r.Buffers...)
	}
	return &c
}

// Draft is the input of the create flow before defaults and time resolution
// are applied.
type Draft struct {
	Title               string      `json:"title" validate:"required,max=200"`
	Description         string      `json:"description,omitempty" validate:"max=2000"`
	Category            Category    `json:"category" validate:"required,oneof=medications appointments important_dates other"`
	RawTime             string      `json:"time,omitempty"`
	Repeat              *RepeatRule `json:"repeat,omitempty"`
	DoseTimes           []string    `json:"dose_times,omitempty"`
	Buffers             []int       `json:"buffers,omitempty" validate:"dive,gte=0"`
	NotifyBeforeMinutes int         `json:"notify_before_minutes" validate:"gte=0"`
	CaregiverID         string      `json:"caregiver_id,omitempty"`
}
