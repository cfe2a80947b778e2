// Package notify is the local notification boundary: the content model, the
// Notifier interface the engine schedules through, and a SQLite-backed queue
// with a delivery dispatcher.
package notify

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Cancel when the notification no longer exists,
// typically because it already fired or was cancelled.
var ErrNotFound = errors.New("notification not found")

// Content is the platform-agnostic payload of a local notification.
type Content struct {
	Title string         `json:"title"`
	Body  string         `json:"body,omitempty"`
	Sound string         `json:"sound,omitempty"`
	Data  map[string]any `json:"data,omitempty"`

	// Tier decoration.
	TierID               string  `json:"tier_id,omitempty"`
	Priority             string  `json:"priority,omitempty"`
	Vibration            []int64 `json:"vibration,omitempty"`
	FullScreenIntent     bool    `json:"full_screen_intent,omitempty"`
	AndroidChannelID     string  `json:"android_channel_id,omitempty"`
	IOSInterruptionLevel string  `json:"ios_interruption_level,omitempty"`
}

// Clone returns a copy that shares no maps or slices with c.
func (c Content) Clone() Content {
	out := c
	if c.Data != nil {
		out.Data = make(map[string]any, len(c.Data))
		for k, v := range c.Data {
			out.Data[k] = v
		}
	}
	if c.Vibration != nil {
		out.Vibration = append([]int64(nil), c.Vibration...)
	}
	return out
}

// Notifier schedules one-shot local notifications.
type Notifier interface {
	ScheduleAt(ctx context.Context, content Content, at time.Time) (string, error)
	Cancel(ctx context.Context, id string) error
}
