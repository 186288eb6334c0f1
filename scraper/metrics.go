package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the crawl phase.
type Metrics struct {
	RequestsTotal   prometheus.Counter
	RequestDuration prometheus.Histogram
	EntriesTotal    prometheus.Counter
	RetriesTotal    prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec
}

// NewMetrics constructs and registers the crawl collectors on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_requests_total",
			Help: "Total catalog page requests issued.",
		}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_request_duration_seconds",
			Help:    "Catalog page request latency.",
			Buckets: prometheus.DefBuckets,
		}),
		EntriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_entries_extracted_total",
			Help: "Total catalog entries extracted from pages.",
		}),
		RetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_fetch_retries_total",
			Help: "Total page fetch retry attempts.",
		}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_fetch_errors_total",
			Help: "Total page fetch errors by category.",
		}, []string{"category"}),
	}
	reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.EntriesTotal, m.RetriesTotal, m.ErrorsTotal)
	return m
}

// IncRequest increments the page request counter.
func (m *Metrics) IncRequest() {
	if m == nil {
		return
	}
	m.RequestsTotal.Inc()
}

// ObserveDuration records a page request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncEntries adds extracted entries to the counter.
func (m *Metrics) IncEntries(n int) {
	if m == nil {
		return
	}
	m.EntriesTotal.Add(float64(n))
}

// IncRetries increments the retry counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the error counter for a category.
func (m *Metrics) IncError(category string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(category).Inc()
}
