package geo

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records lookup outcomes per provider.
type Metrics struct {
	lookups  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the geolocation collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agro_iam",
			Subsystem: "geo",
			Name:      "lookups_total",
			Help:      "Geolocation lookups by provider and outcome.",
		}, []string{"provider", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agro_iam",
			Subsystem: "geo",
			Name:      "lookup_duration_seconds",
			Help:      "Time spent in provider lookups, excluding short-circuited addresses.",
			Buckets:   []float64{.025, .05, .1, .25, .5, 1, 2, 3, 5},
		}, []string{"provider"}),
	}
	reg.MustRegister(m.lookups, m.duration)
	return m
}

func (m *Metrics) observe(provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(provider, outcome).Inc()
	if outcome != OutcomeSkipped {
		m.duration.WithLabelValues(provider).Observe(elapsed.Seconds())
	}
}
