package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lazypower/cadence/internal/store"
)

// Queue is a Notifier that persists notifications to the local_notifications
// table. A Dispatcher delivers them when they come due.
type Queue struct {
	db *store.DB
}

// NewQueue creates a Queue on db.
func NewQueue(db *store.DB) *Queue {
	return &Queue{db: db}
}

func (q *Queue) ScheduleAt(ctx context.Context, content Content, at time.Time) (string, error) {
	payload, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("encode notification: %w", err)
	}
	reminderID, _ := content.Data["reminder_id"].(string)

	n := &store.LocalNotification{
		ID:         uuid.NewString(),
		ReminderID: reminderID,
		Payload:    string(payload),
		FireAt:     at,
	}
	if err := q.db.InsertLocalNotification(ctx, n); err != nil {
		return "", err
	}
	return n.ID, nil
}

func (q *Queue) Cancel(ctx context.Context, id string) error {
	ok, err := q.db.DeleteLocalNotification(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Pending is a queued notification with its decoded content.
type Pending struct {
	ID         string    `json:"id"`
	ReminderID string    `json:"reminder_id,omitempty"`
	FireAt     time.Time `json:"fire_at"`
	Content    Content   `json:"content"`
}

// Pending lists undelivered notifications firing at or before until; a zero
// until lists all of them.
func (q *Queue) Pending(ctx context.Context, until time.Time) ([]Pending, error) {
	rows, err := q.db.PendingNotifications(ctx, until)
	if err != nil {
		return nil, err
	}
	out := make([]Pending, 0, len(rows))
	for _, r := range rows {
		p := Pending{ID: r.ID, ReminderID: r.ReminderID, FireAt: r.FireAt}
		if err := json.Unmarshal([]byte(r.Payload), &p.Content); err != nil {
			return nil, fmt.Errorf("decode notification %s: %w", r.ID, err)
		}
		out = append(out, p)
	}
	return out, nil
}

var _ Notifier = (*Queue)(nil)
var _ Notifier = (*Mock)(nil)
