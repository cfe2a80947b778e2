// Package schedule classifies raw reminder-time input into a Descriptor and
// implements the Next-Slot Rule used when no time was given.
package schedule

import (
	"fmt"
	"time"
)

// Kind tags a Descriptor.
type Kind int

const (
	Unspecified Kind = iota
	Specific
	Routine
)

func (k Kind) String() string {
	switch k {
	case Specific:
		return "specific"
	case Routine:
		return "routine"
	default:
		return "unspecified"
	}
}

// MarshalText lets descriptors travel as JSON.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Descriptor is the canonical "when" of a reminder. At is set for Specific,
// Anchor for Routine, and Raw always keeps the original input.
type Descriptor struct {
	Kind   Kind      `json:"kind"`
	At     time.Time `json:"at,omitzero"`
	Anchor string    `json:"anchor,omitempty"`
	Raw    string    `json:"raw"`
}

func (d Descriptor) String() string {
	switch d.Kind {
	case Specific:
		return fmt.Sprintf("specific(%s)", d.At.Format(time.RFC3339))
	case Routine:
		return fmt.Sprintf("routine(%s)", d.Anchor)
	default:
		return fmt.Sprintf("unspecified(%q)", d.Raw)
	}
}
