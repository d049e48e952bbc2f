package scrape

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the pipeline. All methods are
// nil-safe so metrics stay optional.
type Metrics struct {
	Registry         *prometheus.Registry
	CandidatesTotal  *prometheus.CounterVec
	DownloadsTotal   *prometheus.CounterVec
	DownloadDuration prometheus.Histogram
	RunsTotal        *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	candidates := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgharvest_candidates_total",
			Help: "Candidate URLs discovered, by extraction strategy.",
		},
		[]string{"strategy"},
	)
	downloads := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgharvest_downloads_total",
			Help: "Download attempts by result.",
		},
		[]string{"result"},
	)
	downloadDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "imgharvest_download_duration_seconds",
			Help:    "Image download latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgharvest_runs_total",
			Help: "Completed orchestration runs by terminal state.",
		},
		[]string{"state"},
	)

	registry.MustRegister(candidates, downloads, downloadDuration, runs)

	return &Metrics{
		Registry:         registry,
		CandidatesTotal:  candidates,
		DownloadsTotal:   downloads,
		DownloadDuration: downloadDuration,
		RunsTotal:        runs,
	}
}

// AddCandidates records n discovered candidates for a strategy.
func (m *Metrics) AddCandidates(strategy string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CandidatesTotal.WithLabelValues(strategy).Add(float64(n))
}

// IncDownload records one download attempt result.
func (m *Metrics) IncDownload(result string) {
	if m == nil {
		return
	}
	m.DownloadsTotal.WithLabelValues(result).Inc()
}

// ObserveDownload records one download duration.
func (m *Metrics) ObserveDownload(d time.Duration) {
	if m == nil {
		return
	}
	m.DownloadDuration.Observe(d.Seconds())
}

// IncRun records a run reaching a terminal state.
func (m *Metrics) IncRun(state string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(state).Inc()
}
