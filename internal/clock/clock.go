// Package clock abstracts the current time so that scheduling and recurrence
// logic can be driven deterministically in tests.
package clock

import "time"

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fixed always returns T.
type Fixed struct {
	T time.Time
}

func (c Fixed) Now() time.Time { return c.T }

// Func adapts a function into a Clock. Tests use it to move time forward
// between calls.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// InLocation wraps a clock so every reading is expressed in loc.
func InLocation(c Clock, loc *time.Location) Clock {
	if loc == nil {
		return c
	}
	return Func(func() time.Time { return c.Now().In(loc) })
}

var (
	_ Clock = Real{}
	_ Clock = Fixed{}
	_ Clock = Func(nil)
)
