package submission

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	decisionAccepted   = "accepted"
	decisionStructural = "rejected_structural"
	decisionAdvisory   = "rejected_advisory"
	decisionFailed     = "failed"
)

// Metrics counts submissions by decision. A nil *Metrics records nothing.
type Metrics struct {
	submissions *prometheus.CounterVec
}

// NewMetrics registers the submission collectors with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "formadvisor",
		Subsystem: "submission",
		Name:      "decisions_total",
		Help:      "Form submissions by decision.",
	}, []string{"decision"})

	if reg != nil {
		if err := reg.Register(submissions); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return nil, err
			}
			existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				return nil, err
			}
			submissions = existing
		}
	}
	return &Metrics{submissions: submissions}, nil
}

// Submissions returns the underlying counter vector.
func (m *Metrics) Submissions() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.submissions
}

func (m *Metrics) inc(decision string) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(decision).Inc()
}
