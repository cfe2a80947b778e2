package engine

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a reminder or prompt does not exist.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports caller input the engine refuses to act on.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Diagnostic records a best-effort step that failed without aborting the
// operation it belongs to.
type Diagnostic struct {
	Step       string
	ReminderID string
	Err        error
}

func (d Diagnostic) String() string {
	if d.ReminderID != "" {
		return fmt.Sprintf("%s [%s]: %v", d.Step, d.ReminderID, d.Err)
	}
	return fmt.Sprintf("%s: %v", d.Step, d.Err)
}

func (d Diagnostic) MarshalJSON() ([]byte, error) {
	out := struct {
		Step       string `json:"step"`
		ReminderID string `json:"reminder_id,omitempty"`
		Error      string `json:"error"`
	}{Step: d.Step, ReminderID: d.ReminderID}
	if d.Err != nil {
		out.Error = d.Err.Error()
	}
	return json.Marshal(out)
}

// HasStep reports whether any diagnostic was recorded for step.
func HasStep(diags []Diagnostic, step string) bool {
	for _, d := range diags {
		if d.Step == step {
			return true
		}
	}
	return false
}

// Diagnostic steps.
const (
	StepCancel          = "cancel"
	StepEscalation      = "escalation"
	StepMilestone       = "milestone"
	StepCaregiver       = "caregiver"
	StepChain           = "chain"
	StepSnoozePattern   = "snooze_pattern"
	StepPrompt          = "prompt"
	StepAnchorUpdate    = "anchor_update"
	StepSchedule        = "schedule"
	StepLegacyMigration = "legacy_migration"
	StepNextOccurrence  = "next_occurrence"
)
