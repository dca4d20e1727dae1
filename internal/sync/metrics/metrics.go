package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for sync runs.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec
	OutcomesTotal      *prometheus.CounterVec
	PageFetchDuration  prometheus.Histogram
	PageFetchFailures  *prometheus.CounterVec
	UpsertDuration     prometheus.Histogram
	AccountsCreated    prometheus.Counter
	RunDurationSeconds prometheus.Histogram
}

// New registers every sync metric with reg. Tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_sync_runs_total",
			Help: "Sync runs by final status",
		}, []string{"status"}),
		OutcomesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_sync_outcomes_total",
			Help: "Per-registrant outcomes by status",
		}, []string{"status"}),
		PageFetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "roster_sync_page_fetch_duration_seconds",
			Help:    "Duration of feed page fetches",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		PageFetchFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_sync_page_fetch_failures_total",
			Help: "Feed page fetch failures by category",
		}, []string{"category"}),
		UpsertDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "roster_sync_upsert_duration_seconds",
			Help:    "Duration of a single registrant upsert including credential hashing",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		AccountsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "roster_accounts_created_total",
			Help: "Total number of accounts created by sync",
		}),
		RunDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "roster_sync_run_duration_seconds",
			Help:    "Wall time of a full sync run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

func (m *Metrics) ObservePageFetch(start time.Time) {
	m.PageFetchDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementPageFetchFailure(category string) {
	m.PageFetchFailures.WithLabelValues(category).Inc()
}

func (m *Metrics) ObserveUpsert(start time.Time) {
	m.UpsertDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementOutcome(status string) {
	m.OutcomesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementAccountsCreated() {
	m.AccountsCreated.Inc()
}

// ObserveRun records the final status and wall time of a run.
func (m *Metrics) ObserveRun(status string, start time.Time) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDurationSeconds.Observe(time.Since(start).Seconds())
}
