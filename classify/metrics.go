package classify

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts model server traffic.
type Metrics struct {
	requests  *prometheus.CounterVec
	cacheHits *prometheus.CounterVec
}

// NewMetrics creates and registers the classifier metrics. A nil registerer
// disables metrics.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "isamples",
			Subsystem: "classifier",
			Name:      "requests_total",
			Help:      "Model server requests by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "isamples",
			Subsystem: "classifier",
			Name:      "cache_hits_total",
			Help:      "Model server responses served from the cache",
		}, []string{"endpoint"}),
	}
	for _, c := range []prometheus.Collector{m.requests, m.cacheHits} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register classifier metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) recordRequest(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) recordCacheHit(endpoint string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(endpoint).Inc()
}
