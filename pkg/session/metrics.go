package session

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeStarted   = "started"
	outcomeCommitted = "committed"
	outcomeDiscarded = "discarded"
	outcomeFailed    = "failed"
)

// Metrics counts advisory evaluations by outcome. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	evaluations *prometheus.CounterVec
}

// NewMetrics registers the session collectors with reg. Registering twice
// against the same registry reuses the existing collector.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	evaluations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "formadvisor",
		Subsystem: "session",
		Name:      "advisory_evaluations_total",
		Help:      "Advisory evaluations by outcome (started, committed, discarded, failed).",
	}, []string{"outcome"})

	if reg != nil {
		if err := reg.Register(evaluations); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return nil, err
			}
			existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				return nil, err
			}
			evaluations = existing
		}
	}
	return &Metrics{evaluations: evaluations}, nil
}

// Evaluations returns the underlying counter vector.
func (m *Metrics) Evaluations() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.evaluations
}

func (m *Metrics) inc(outcome string) {
	if m == nil || m.evaluations == nil {
		return
	}
	m.evaluations.WithLabelValues(outcome).Inc()
}
