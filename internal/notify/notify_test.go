package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/cadence/internal/clock"
	"github.com/lazypower/cadence/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestContentCloneIsIndependent(t *testing.T) {
	c := Content{Title: "x", Data: map[string]any{"a": 1}, Vibration: []int64{0, 100}}
	cp := c.Clone()
	cp.Data["a"] = 2
	cp.Vibration[1] = 999

	assert.Equal(t, 1, c.Data["a"])
	assert.Equal(t, int64(100), c.Vibration[1])
}

func TestQueueScheduleAndCancel(t *testing.T) {
	db := testDB(t)
	q := NewQueue(db)
	ctx := context.Background()

	id, err := q.ScheduleAt(ctx, Content{Title: "Pills", Data: map[string]any{"reminder_id": "r1"}}, base)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	pending, err := q.Pending(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "r1", pending[0].ReminderID)
	assert.Equal(t, "Pills", pending[0].Content.Title)
	assert.True(t, pending[0].FireAt.Equal(base))

	require.NoError(t, q.Cancel(ctx, id))
	err = q.Cancel(ctx, id)
	assert.True(t, errors.Is(err, ErrNotFound), "second cancel err = %v", err)
}

func TestMockCancelUnknown(t *testing.T) {
	m := NewMock()
	assert.ErrorIs(t, m.Cancel(context.Background(), "nope"), ErrNotFound)
}

func TestDispatcherDeliversDueOnly(t *testing.T) {
	db := testDB(t)
	q := NewQueue(db)
	ctx := context.Background()

	_, err := q.ScheduleAt(ctx, Content{Title: "due"}, base.Add(-time.Minute))
	require.NoError(t, err)
	_, err = q.ScheduleAt(ctx, Content{Title: "later"}, base.Add(time.Hour))
	require.NoError(t, err)

	var got []string
	sink := SinkFunc(func(ctx context.Context, p Pending) error {
		got = append(got, p.Content.Title)
		return nil
	})
	d := NewDispatcher(db, sink, clock.Fixed{T: base}, time.Minute, nil, nil)

	n, err := d.DeliverDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"due"}, got)

	n, err = d.DeliverDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "delivered notifications must not be redelivered")
}

func TestDispatcherSinkFailureKeepsQueued(t *testing.T) {
	db := testDB(t)
	q := NewQueue(db)
	ctx := context.Background()

	_, err := q.ScheduleAt(ctx, Content{Title: "due"}, base)
	require.NoError(t, err)

	failing := SinkFunc(func(ctx context.Context, p Pending) error { return errors.New("offline") })
	d := NewDispatcher(db, failing, clock.Fixed{T: base}, time.Minute, nil, nil)
	n, err := d.DeliverDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	pending, _ := q.Pending(ctx, base)
	assert.Len(t, pending, 1)
}

func TestDispatcherStartStop(t *testing.T) {
	db := testDB(t)
	d := NewDispatcher(db, SinkFunc(func(context.Context, Pending) error { return nil }), clock.Real{}, time.Hour, nil, nil)
	d.Start()
	d.Stop()
}
