package providers

import (
	"archivist/internal/structures"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	ObservePersistenceDuration(duration time.Duration)
	ObserveIngestDuration(duration time.Duration)
	IncEntryReads(outcome string)
	SetRecordsTotal(kind string, count int)
}

// ArchiveStateReader is the part of the archive service the gauges need.
type ArchiveStateReader interface {
	Loaded() bool
	LoadedAt() time.Time
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	persistenceDuration prometheus.Histogram
	ingestDuration      prometheus.Histogram
	entryReads          *prometheus.CounterVec
	recordsTotal        *prometheus.GaugeVec
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) ObserveIngestDuration(duration time.Duration) {
	m.ingestDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncEntryReads(outcome string) {
	m.entryReads.WithLabelValues(outcome).Inc()
}

func (m *MetricsProvider) SetRecordsTotal(kind string, count int) {
	m.recordsTotal.WithLabelValues(kind).Set(float64(count))
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config, state ArchiveStateReader) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	m := &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "archivist_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "archivist_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "archivist_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "archivist_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "archivist_persistence_duration_seconds",
			Help:    "Duration of save file writes and reads in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		ingestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "archivist_ingest_duration_seconds",
			Help:    "Duration of a full archive ingestion in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		entryReads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "archivist_entry_reads_total",
			Help: "Container entry reads by outcome",
		}, []string{"outcome"}),

		recordsTotal: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "archivist_records_total",
			Help: "Number of indexed records per collection",
		}, []string{"kind"}),
	}

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "archivist_archive_loaded",
		Help: "1 when an archive is currently served",
	}, func() float64 {
		if state.Loaded() {
			return 1
		}
		return 0
	})

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "archivist_archive_age_seconds",
		Help: "Seconds since the served archive was loaded",
	}, func() float64 {
		if !state.Loaded() {
			return 0
		}
		return time.Since(state.LoadedAt()).Seconds()
	})

	return m
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (n *noopMetrics) ObserveIngestDuration(_ time.Duration)            {}
func (n *noopMetrics) IncEntryReads(_ string)                           {}
func (n *noopMetrics) SetRecordsTotal(_ string, _ int)                  {}
