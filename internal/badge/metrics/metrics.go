package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rejection reasons.
const (
	ReasonDeadlineExpired  = "deadline_expired"
	ReasonInvalidTeamName  = "invalid_team_name"
	ReasonUnknownComponent = "unknown_component"
	ReasonMintFailed       = "mint_failed"
)

// Metrics provides observability for badge issuance.
type Metrics struct {
	ComponentsInstantiated prometheus.Counter
	BadgesIssued           prometheus.Counter
	BadgeRejections        *prometheus.CounterVec
	IssueDuration          prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ComponentsInstantiated: factory.NewCounter(prometheus.CounterOpts{
			Name: "badgeissuer_components_instantiated_total",
			Help: "Total number of issuance components instantiated",
		}),
		BadgesIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "badgeissuer_badges_issued_total",
			Help: "Total number of attendance badges issued",
		}),
		BadgeRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "badgeissuer_badge_rejections_total",
			Help: "Badge requests rejected, by reason",
		}, []string{"reason"}),
		IssueDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "badgeissuer_badge_issue_duration_seconds",
			Help:    "Duration of successful badge issuance",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementComponentsInstantiated() {
	m.ComponentsInstantiated.Inc()
}

func (m *Metrics) IncrementBadgesIssued() {
	m.BadgesIssued.Inc()
}

func (m *Metrics) IncrementRejection(reason string) {
	m.BadgeRejections.WithLabelValues(reason).Inc()
}

// ObserveIssue records the duration of an issuance. Call with time.Now()
// at the start of the operation.
func (m *Metrics) ObserveIssue(start time.Time) {
	m.IssueDuration.Observe(time.Since(start).Seconds())
}
