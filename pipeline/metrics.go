package pipeline

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Record outcomes.
const (
	OutcomeIndexed  = "indexed"
	OutcomeExcluded = "excluded"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
)

// Metrics counts pipeline outcomes.
type Metrics struct {
	records  *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics creates and registers the pipeline metrics. A nil registerer
// disables metrics.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}
	m := &Metrics{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "isamples",
			Subsystem: "pipeline",
			Name:      "records_total",
			Help:      "Canonical records by authority and outcome",
		}, []string{"authority", "outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "isamples",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a pipeline run",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
		}),
	}
	for _, c := range []prometheus.Collector{m.records, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register pipeline metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) recordOutcome(authority, outcome string) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(authority, outcome).Inc()
}

func (m *Metrics) observeRun(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}
