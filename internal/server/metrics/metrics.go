// Package metrics holds the Prometheus collectors of the file service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "filekeeper"

// Metrics holds all collectors. Components receive the fields they need.
type Metrics struct {
	// Ingest outcomes by result label (ok, client_error, write_failed, ...).
	UploadsTotal   *prometheus.CounterVec // filekeeper_uploads_total{result}
	UploadedBytes  prometheus.Counter
	UploadDuration prometheus.Histogram

	// Publish failures that leave a row without a readable file.
	CriticalFaults prometheus.Counter

	// Event dispatch
	EventsPublished *prometheus.CounterVec // filekeeper_events_published_total{result}
	EventsDropped   prometheus.Counter

	// Orphan reaper and reconciler
	ReaperRemovedFiles prometheus.Counter
	ReaperFreedBytes   prometheus.Counter
	ReaperErrors       prometheus.Counter
	UnpublishedObjects prometheus.Gauge

	// HTTP surface
	HTTPRequests *prometheus.CounterVec   // filekeeper_http_requests_total{method,route,status}
	HTTPDuration *prometheus.HistogramVec // filekeeper_http_request_duration_seconds{method,route}

	gatherer prometheus.Gatherer
}

// New registers all collectors with a fresh registry, plus Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers collectors with reg and serves them from g.
func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UploadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Upload attempts by outcome",
		}, []string{"result"}),
		UploadedBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Bytes of successfully stored uploads",
		}),
		UploadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Time spent ingesting an upload, all phases",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}),
		CriticalFaults: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "critical_faults_total",
			Help:      "Uploads whose metadata committed but whose bytes could not be published",
		}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Object-created events handed to the publisher, by result",
		}, []string{"result"}),
		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Object-created events dropped because the dispatch queue was full",
		}),
		ReaperRemovedFiles: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reaper_removed_files_total",
			Help:      "Stale staging files removed by the orphan reaper",
		}),
		ReaperFreedBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reaper_freed_bytes_total",
			Help:      "Bytes freed by the orphan reaper",
		}),
		ReaperErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reaper_errors_total",
			Help:      "Per-file errors seen by the orphan reaper",
		}),
		UnpublishedObjects: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unpublished_objects",
			Help:      "Live metadata rows whose canonical file is missing, as of the last reconcile",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		gatherer: g,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
