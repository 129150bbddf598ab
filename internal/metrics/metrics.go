// Package metrics counts what an ingestion run loaded and dropped and exports
// the result in the Prometheus textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "imgtdb"

const (
	MetricRecordsLoaded   = "records_loaded_total"
	MetricRecordsDropped  = "records_dropped_total"
	MetricReleases        = "releases_total"
	MetricReleaseDuration = "release_duration_seconds"
)

// Drop reasons.
const (
	ReasonUnmapped     = "unmapped"
	ReasonUnknownLocus = "unknown_locus"
)

// Release outcomes.
const (
	StatusDone    = "done"
	StatusAborted = "aborted"
)

// Metrics holds the collectors of one run on a private registry.
type Metrics struct {
	Registry        *prometheus.Registry
	RecordsLoaded   *prometheus.CounterVec
	RecordsDropped  *prometheus.CounterVec
	Releases        *prometheus.CounterVec
	ReleaseDuration *prometheus.GaugeVec
}

// New creates and registers the run collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RecordsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricRecordsLoaded,
			Help:      "Records written to the sequence store.",
		}, []string{"release", "locus"}),
		RecordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricRecordsDropped,
			Help:      "Records skipped while partitioning.",
		}, []string{"release", "reason"}),
		Releases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricReleases,
			Help:      "Releases processed, by outcome.",
		}, []string{"status"}),
		ReleaseDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      MetricReleaseDuration,
			Help:      "Wall time spent on a release.",
		}, []string{"release"}),
	}
	m.Registry.MustRegister(m.RecordsLoaded, m.RecordsDropped, m.Releases, m.ReleaseDuration)
	return m
}

// Loaded adds n loaded records of a locus.
func (m *Metrics) Loaded(release, locus string, n int) {
	if m == nil {
		return
	}
	m.RecordsLoaded.WithLabelValues(release, locus).Add(float64(n))
}

// Dropped adds n records skipped for reason.
func (m *Metrics) Dropped(release, reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RecordsDropped.WithLabelValues(release, reason).Add(float64(n))
}

// Finished records the outcome and duration of a release.
func (m *Metrics) Finished(release, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.Releases.WithLabelValues(status).Inc()
	m.ReleaseDuration.WithLabelValues(release).Set(d.Seconds())
}

// WriteTextfile writes the registry to path for a node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
