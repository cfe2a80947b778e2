package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lazypower/cadence/internal/clock"
	"github.com/lazypower/cadence/internal/metrics"
	"github.com/lazypower/cadence/internal/store"
)

// Sink receives notifications as they come due.
type Sink interface {
	Deliver(ctx context.Context, p Pending) error
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(ctx context.Context, p Pending) error

func (f SinkFunc) Deliver(ctx context.Context, p Pending) error { return f(ctx, p) }

// LogSink writes each delivered notification to a zap logger.
func LogSink(logger *zap.Logger) Sink {
	return SinkFunc(func(ctx context.Context, p Pending) error {
		logger.Info("notification due",
			zap.String("id", p.ID),
			zap.String("reminder_id", p.ReminderID),
			zap.String("title", p.Content.Title),
			zap.String("tier", p.Content.TierID),
			zap.Time("fire_at", p.FireAt),
		)
		return nil
	})
}

// Dispatcher polls the queue and hands due notifications to a Sink.
type Dispatcher struct {
	queue    *Queue
	db       *store.DB
	sink     Sink
	clock    clock.Clock
	interval time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewDispatcher creates a dispatcher polling every interval.
func NewDispatcher(db *store.DB, sink Sink, c clock.Clock, interval time.Duration, logger *zap.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Dispatcher{
		queue:    NewQueue(db),
		db:       db,
		sink:     sink,
		clock:    c,
		interval: interval,
		logger:   logger,
		metrics:  m,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// DeliverDue delivers every notification due at the current clock reading and
// returns how many were delivered. A sink failure leaves the notification
// queued for the next pass.
func (d *Dispatcher) DeliverDue(ctx context.Context) (int, error) {
	now := d.clock.Now()
	due, err := d.queue.Pending(ctx, now)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, p := range due {
		if err := d.sink.Deliver(ctx, p); err != nil {
			d.logger.Warn("deliver notification", zap.String("id", p.ID), zap.Error(err))
			continue
		}
		if err := d.db.MarkDelivered(ctx, p.ID, now); err != nil {
			d.logger.Warn("mark delivered", zap.String("id", p.ID), zap.Error(err))
			continue
		}
		d.metrics.Delivered()
		delivered++
	}
	return delivered, nil
}

// Start runs one delivery pass immediately and then one per interval until
// Stop is called.
func (d *Dispatcher) Start() {
	d.runOnce()

	go func() {
		defer close(d.doneCh)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				d.runOnce()
			case <-d.stopCh:
				return
			}
		}
	}()
}

// Stop halts the polling loop and waits for it to exit. It must only be
// called after Start.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	<-d.doneCh
}

func (d *Dispatcher) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), d.interval)
	defer cancel()
	if n, err := d.DeliverDue(ctx); err != nil {
		d.logger.Error("delivery pass", zap.Error(err))
	} else if n > 0 {
		d.logger.Info("delivery pass", zap.Int("delivered", n))
	}
}
