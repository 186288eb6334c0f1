package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the persistence phase.
type Metrics struct {
	PagesCommitted     prometheus.Counter
	Observations       prometheus.Counter
	EntriesSkipped     *prometheus.CounterVec
	PageCommitDuration prometheus.Histogram
}

// NewMetrics constructs and registers the ingest collectors on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		PagesCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_pages_committed_total",
			Help: "Catalog pages committed to the store.",
		}),
		Observations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_observations_appended_total",
			Help: "Price observations appended to the history.",
		}),
		EntriesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_entries_skipped_total",
			Help: "Catalog entries skipped before persistence, by reason.",
		}, []string{"reason"}),
		PageCommitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_page_commit_duration_seconds",
			Help:    "Page transaction commit latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.PagesCommitted, m.Observations, m.EntriesSkipped, m.PageCommitDuration)
	return m
}

// PageCommitted records one committed page and its commit latency.
func (m *Metrics) PageCommitted(d time.Duration) {
	if m == nil {
		return
	}
	m.PagesCommitted.Inc()
	m.PageCommitDuration.Observe(d.Seconds())
}

// ObservationsAppended adds appended observations to the counter.
func (m *Metrics) ObservationsAppended(n int) {
	if m == nil {
		return
	}
	m.Observations.Add(float64(n))
}

// EntrySkipped increments the skip counter for a reason.
func (m *Metrics) EntrySkipped(reason string) {
	if m == nil {
		return
	}
	m.EntriesSkipped.WithLabelValues(reason).Inc()
}
