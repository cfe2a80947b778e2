package notify

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Scheduled is a notification held by Mock.
type Scheduled struct {
	ID      string
	Content Content
	At      time.Time
}

// Mock is an in-memory Notifier for tests. ScheduleErr and CancelErr force
// failures; FailWhen fails only the calls it returns true for.
type Mock struct {
	mu          sync.Mutex
	seq         int
	live        map[string]Scheduled
	Cancelled   []string
	ScheduleErr error
	CancelErr   error
	FailWhen    func(Content) bool
}

// NewMock returns an empty Mock.
func NewMock() *Mock {
	return &Mock{live: make(map[string]Scheduled)}
}

func (m *Mock) ScheduleAt(ctx context.Context, content Content, at time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ScheduleErr != nil {
		return "", m.ScheduleErr
	}
	if m.FailWhen != nil && m.FailWhen(content) {
		return "", fmt.Errorf("mock: schedule rejected")
	}
	m.seq++
	id := fmt.Sprintf("mock-%d", m.seq)
	m.live[id] = Scheduled{ID: id, Content: content.Clone(), At: at}
	return id, nil
}

func (m *Mock) Cancel(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CancelErr != nil {
		return m.CancelErr
	}
	if _, ok := m.live[id]; !ok {
		return ErrNotFound
	}
	delete(m.live, id)
	m.Cancelled = append(m.Cancelled, id)
	return nil
}

// Live returns the notifications still scheduled.
func (m *Mock) Live() []Scheduled {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Scheduled, 0, len(m.live))
	for _, s := range m.live {
		out = append(out, s)
	}
	return out
}

// Get returns a live notification by id.
func (m *Mock) Get(id string) (Scheduled, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.live[id]
	return s, ok
}

// LiveFor returns live notifications whose data carries the reminder id.
func (m *Mock) LiveFor(reminderID string) []Scheduled {
	var out []Scheduled
	for _, s := range m.Live() {
		if s.Content.Data["reminder_id"] == reminderID {
			out = append(out, s)
		}
	}
	return out
}
