package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RefreshMetrics captures refresh pipeline health signals.
type RefreshMetrics struct {
	jobRuns        *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	jobErrors      *prometheus.CounterVec
	jobSkipped     *prometheus.CounterVec
	coinsProcessed *prometheus.CounterVec
	providerCalls  *prometheus.CounterVec
}

var (
	refreshMetricsOnce sync.Once
	refreshMetrics     *RefreshMetrics
)

// Refresh returns the singleton refresh metrics registry.
func Refresh() *RefreshMetrics {
	refreshMetricsOnce.Do(func() {
		refreshMetrics = newRefreshMetrics(prometheus.DefaultRegisterer)
	})
	return refreshMetrics
}

func newRefreshMetrics(reg prometheus.Registerer) *RefreshMetrics {
	m := &RefreshMetrics{
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stableview_refresh_job_runs_total",
			Help: "Refresh job runs by job name.",
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stableview_refresh_job_duration_seconds",
			Help:    "Refresh job wall time by job name.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stableview_refresh_job_errors_total",
			Help: "Refresh job run-level failures by job name.",
		}, []string{"job"}),
		jobSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stableview_refresh_job_skipped_total",
			Help: "Refresh runs skipped because another holder owns the run lock.",
		}, []string{"job"}),
		coinsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stableview_refresh_coins_total",
			Help: "Per-coin refresh outcomes by job name and outcome.",
		}, []string{"job", "outcome"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stableview_provider_requests_total",
			Help: "Outbound provider requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
	}

	for _, c := range []prometheus.Collector{
		m.jobRuns, m.jobDuration, m.jobErrors, m.jobSkipped, m.coinsProcessed, m.providerCalls,
	} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
	return m
}

func (m *RefreshMetrics) IncJobRun(job string) {
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *RefreshMetrics) ObserveJobDuration(job string, d time.Duration) {
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *RefreshMetrics) IncJobError(job string) {
	m.jobErrors.WithLabelValues(job).Inc()
}

func (m *RefreshMetrics) IncJobSkipped(job string) {
	m.jobSkipped.WithLabelValues(job).Inc()
}

func (m *RefreshMetrics) IncCoinOutcome(job, outcome string) {
	m.coinsProcessed.WithLabelValues(job, outcome).Inc()
}

func (m *RefreshMetrics) IncProviderCall(provider, outcome string) {
	m.providerCalls.WithLabelValues(provider, outcome).Inc()
}
