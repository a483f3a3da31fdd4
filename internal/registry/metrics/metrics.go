package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry module.
type Metrics struct {
	ResourcesCreated prometheus.Counter
	Minted           prometheus.Counter
	Recalled         prometheus.Counter
	AccessDenied     *prometheus.CounterVec
	MintDuration     prometheus.Histogram
}

// New registers the registry metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ResourcesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "badgeissuer_resources_created_total",
			Help: "Total number of non-fungible resources created",
		}),
		Minted: factory.NewCounter(prometheus.CounterOpts{
			Name: "badgeissuer_non_fungibles_minted_total",
			Help: "Total number of non-fungible records minted",
		}),
		Recalled: factory.NewCounter(prometheus.CounterOpts{
			Name: "badgeissuer_non_fungibles_recalled_total",
			Help: "Total number of non-fungible records recalled by the owner",
		}),
		AccessDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "badgeissuer_registry_access_denied_total",
			Help: "Registry operations rejected by an access rule",
		}, []string{"role"}),
		MintDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "badgeissuer_mint_duration_seconds",
			Help:    "Duration of mint operations including id assignment",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementResourcesCreated() {
	m.ResourcesCreated.Inc()
}

func (m *Metrics) IncrementMinted() {
	m.Minted.Inc()
}

func (m *Metrics) IncrementRecalled() {
	m.Recalled.Inc()
}

func (m *Metrics) IncrementAccessDenied(role string) {
	m.AccessDenied.WithLabelValues(role).Inc()
}

// ObserveMint records the duration of a mint. Call with time.Now() at the
// start of the operation.
func (m *Metrics) ObserveMint(start time.Time) {
	m.MintDuration.Observe(time.Since(start).Seconds())
}
