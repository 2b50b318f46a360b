// Package jobmetrics instruments background job runs.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for farmbooks_jobs_total.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the job collectors. A nil *Metrics records nothing.
type Metrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	mismatches  *prometheus.CounterVec
}

var shared = sync.OnceValue(func() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
})

// NewMetrics registers the collectors with reg. A nil reg returns the
// process-wide instance bound to the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return shared()
	}
	return newMetrics(reg)
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "farmbooks_jobs_total",
			Help: "Background job runs by job and outcome.",
		}, []string{"job", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "farmbooks_job_duration_seconds",
			Help:    "Background job run time.",
			Buckets: []float64{.1, .5, 1, 5, 15, 60, 300, 900},
		}, []string{"job"}),
		lastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "farmbooks_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per job.",
		}, []string{"job"}),
		mismatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "farmbooks_ledger_integrity_mismatches_total",
			Help: "Ledger integrity violations by check.",
		}, []string{"check"}),
	}
}

// Tracker times one job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts timing a run of job.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End records the run outcome and returns err unchanged so handlers can
// write `return tracker.End(err)`.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil {
		return err
	}
	m := t.metrics
	m.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	if err != nil {
		m.runs.WithLabelValues(t.job, OutcomeFailure).Inc()
		return err
	}
	m.runs.WithLabelValues(t.job, OutcomeSuccess).Inc()
	m.lastSuccess.WithLabelValues(t.job).SetToCurrentTime()
	return nil
}

// AddIntegrityMismatches counts violations found by check.
func (m *Metrics) AddIntegrityMismatches(check string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.mismatches.WithLabelValues(check).Add(float64(count))
}
