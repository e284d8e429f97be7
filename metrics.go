package kickoff

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the task counters and request outcomes to
// prometheus. It is optional; the scheduler itself never reads it.
type Metrics struct {
	RequestsTotal *prometheus.CounterVec

	reg *prometheus.Registry
}

// NewMetrics creates the metric set over the given database. The task
// gauges read the database counters at scrape time, so they are always
// consistent with what the stats command reports.
func NewMetrics(db *Database) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "kickoff",
			Name:      "tasks_pending",
			Help:      "Number of pending tasks",
		},
		func() float64 { return float64(db.Stats().NumPending) },
	)
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "kickoff",
			Name:      "tasks_running",
			Help:      "Number of currently running tasks",
		},
		func() float64 { return float64(db.Stats().NumRunning) },
	)
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "kickoff",
			Name:      "tasks_canceling",
			Help:      "Number of tasks marked for cancellation still on a worker",
		},
		func() float64 { return float64(db.Stats().NumCanceling) },
	)
	factory.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: "kickoff",
			Name:      "tasks_finished_total",
			Help:      "Total tasks that left the database",
		},
		func() float64 { return float64(db.Stats().NumFinished) },
	)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kickoff",
				Name:      "requests_total",
				Help:      "Total requests served by outcome",
			},
			[]string{"outcome"},
		),
		reg: reg,
	}
}

// Handler returns the HTTP handler serving the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
