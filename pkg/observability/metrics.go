// Package observability provides engine observers that export traversal
// activity to monitoring systems.
package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aretw0/canvass/pkg/domain"
)

const namespace = "canvass"

// Metrics is a domain.Observer exporting Prometheus counters for engine
// events. One instance may watch any number of sessions.
type Metrics struct {
	questionsSurfaced prometheus.Counter
	feedbackTotal     *prometheus.CounterVec
	revisionsTotal    prometheus.Counter
	completedTotal    *prometheus.CounterVec
	restoredTotal     prometheus.Counter
}

// NewMetrics creates the metric set and registers it with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		questionsSurfaced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_surfaced_total",
			Help:      "Total number of questions surfaced for manual input",
		}),
		feedbackTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_total",
			Help:      "Total number of committed feedback records",
		}, []string{"automatic"}),
		revisionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_revisions_total",
			Help:      "Total number of revised answers",
		}),
		completedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Total number of completed sessions by reason",
		}, []string{"reason"}),
		restoredTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_restored_total",
			Help:      "Total number of sessions restored from snapshots",
		}),
	}
}

// HandleEvent implements domain.Observer. It never returns an error.
func (m *Metrics) HandleEvent(ctx context.Context, event domain.Event) error {
	switch event.Type {
	case domain.EventNextQuestion:
		m.questionsSurfaced.Inc()
	case domain.EventFeedbackEntered:
		automatic := "false"
		if event.Feedback != nil && event.Feedback.Automatic {
			automatic = "true"
		}
		m.feedbackTotal.WithLabelValues(automatic).Inc()
	case domain.EventFeedbackUpdated:
		m.revisionsTotal.Inc()
	case domain.EventCompleted:
		m.completedTotal.WithLabelValues(string(event.Reason)).Inc()
	case domain.EventSessionRestored:
		m.restoredTotal.Inc()
	}
	return nil
}
