package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts rate limit decisions.
type Metrics struct {
	Limited     *prometheus.CounterVec
	StoreErrors prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Limited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "badgeissuer_rate_limited_total",
			Help: "Requests rejected by the rate limiter, by scope",
		}, []string{"scope"}),
		StoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "badgeissuer_rate_limit_store_errors_total",
			Help: "Rate limit checks that failed open because the store errored",
		}),
	}
}

func (m *Metrics) IncrementLimited(scope string) {
	m.Limited.WithLabelValues(scope).Inc()
}

func (m *Metrics) IncrementStoreErrors() {
	m.StoreErrors.Inc()
}
