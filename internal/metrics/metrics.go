// Package metrics holds the Prometheus collectors for the scheduling engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the engine's counters.
type Metrics struct {
	scheduled    *prometheus.CounterVec
	skipped      *prometheus.CounterVec
	cancelled    prometheus.Counter
	milestones   *prometheus.CounterVec
	caregiver    prometheus.Counter
	prompts      *prometheus.CounterVec
	sweepFailure prometheus.Counter
	delivered    prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		scheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cadence",
			Name:      "reminders_scheduled_total",
			Help:      "Local notifications scheduled for reminders, by tier.",
		}, []string{"tier"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cadence",
			Name:      "reminders_skipped_total",
			Help:      "Reminders not scheduled, by reason.",
		}, []string{"reason"}),
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cadence",
			Name:      "notifications_cancelled_total",
			Help:      "Local notifications cancelled.",
		}),
		milestones: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cadence",
			Name:      "escalation_milestones_total",
			Help:      "Escalation milestones scheduled, by level.",
		}, []string{"level"}),
		caregiver: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cadence",
			Name:      "caregiver_escalations_total",
			Help:      "Caregiver escalation requests recorded.",
		}),
		prompts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cadence",
			Name:      "anchor_prompts_total",
			Help:      "Adaptive anchor prompts offered, by outcome.",
		}, []string{"outcome"}),
		sweepFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cadence",
			Name:      "reschedule_failures_total",
			Help:      "Reminders that failed during a reschedule sweep.",
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cadence",
			Name:      "notifications_delivered_total",
			Help:      "Queued local notifications handed to the delivery sink.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.scheduled, m.skipped, m.cancelled, m.milestones,
			m.caregiver, m.prompts, m.sweepFailure, m.delivered)
	}
	return m
}

func (m *Metrics) Scheduled(tier string) {
	if m != nil {
		m.scheduled.WithLabelValues(tier).Inc()
	}
}

func (m *Metrics) Skipped(reason string) {
	if m != nil {
		m.skipped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Cancelled() {
	if m != nil {
		m.cancelled.Inc()
	}
}

func (m *Metrics) Milestone(level int) {
	if m != nil {
		m.milestones.WithLabelValues(strconv.Itoa(level)).Inc()
	}
}

func (m *Metrics) CaregiverEscalation() {
	if m != nil {
		m.caregiver.Inc()
	}
}

func (m *Metrics) Prompt(outcome string) {
	if m != nil {
		m.prompts.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) SweepFailure() {
	if m != nil {
		m.sweepFailure.Inc()
	}
}

func (m *Metrics) Delivered() {
	if m != nil {
		m.delivered.Inc()
	}
}
