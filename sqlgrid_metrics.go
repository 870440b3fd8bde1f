package sqlgrid

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

/*
Optional Prometheus instrumentation for `Source`. Create via `NewMetrics` and
attach via `Source.WithMetrics`. One `Metrics` may be shared by any number of
sources. Nil `*Metrics` is valid and records nothing.

Labels: "op" is one of "data", "limit", "count". "kind" is a `FilterKind`.
*/
type Metrics struct {
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
	FilterErrors  *prometheus.CounterVec
}

/*
Creates the collectors and registers them with the given registerer. Panics if
they're already registered, like `prometheus.MustRegister`. A nil registerer
creates unregistered collectors.
*/
func NewMetrics(reg prometheus.Registerer) *Metrics {
	fac := promauto.With(reg)

	return &Metrics{
		QueryDuration: fac.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    `sqlgrid_query_duration_seconds`,
				Help:    `Duration of statements executed by data sources, in seconds.`,
				Buckets: prometheus.DefBuckets,
			},
			[]string{`op`},
		),
		QueryErrors: fac.NewCounterVec(
			prometheus.CounterOpts{
				Name: `sqlgrid_query_errors_total`,
				Help: `Total number of failed statement executions.`,
			},
			[]string{`op`},
		),
		FilterErrors: fac.NewCounterVec(
			prometheus.CounterOpts{
				Name: `sqlgrid_filter_errors_total`,
				Help: `Total number of rejected filters.`,
			},
			[]string{`kind`},
		),
	}
}

func (self *Metrics) observeQuery(op string, start time.Time) {
	if self != nil {
		self.QueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

func (self *Metrics) queryFailed(op string) {
	if self != nil {
		self.QueryErrors.WithLabelValues(op).Inc()
	}
}

func (self *Metrics) filterFailed(kind FilterKind) {
	if self != nil {
		self.FilterErrors.WithLabelValues(string(kind)).Inc()
	}
}
