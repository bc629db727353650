package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/exam-assign-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	reloadDuration  *prometheus.HistogramVec
	snapshotVersion prometheus.Gauge

	assignmentsSaved     *prometheus.CounterVec
	assignmentsCompleted prometheus.Counter
	bulkFailures         prometheus.Counter
	snapshotReloads      *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	reloadCount          uint64
	reloadDurationTotal  uint64
	version              uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	reloadDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of collection reload queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	snapshotVersion := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "snapshot_version",
		Help: "Version of the in-memory snapshot currently served",
	})

	assignmentsSaved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignments_saved_total",
		Help: "Assignments created or updated",
	}, []string{"operation"})

	assignmentsCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assignments_completed_total",
		Help: "Assignments moved to Completed",
	})

	bulkFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bulk_completion_failures_total",
		Help: "Individual writes that failed during bulk completion",
	})

	snapshotReloads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_reloads_total",
		Help: "Authoritative snapshot reloads per collection",
	}, []string{"collection", "result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		reloadDuration, snapshotVersion, assignmentsSaved, assignmentsCompleted, bulkFailures, snapshotReloads, goroutines)

	return &MetricsService{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		cacheLatency:         cacheLatency,
		cacheWrite:           cacheWrite,
		cacheHitRatio:        cacheHitRatio,
		cacheHits:            cacheHits,
		cacheMisses:          cacheMisses,
		reloadDuration:       reloadDuration,
		snapshotVersion:      snapshotVersion,
		assignmentsSaved:     assignmentsSaved,
		assignmentsCompleted: assignmentsCompleted,
		bulkFailures:         bulkFailures,
		snapshotReloads:      snapshotReloads,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveReload records one authoritative collection reload.
func (m *MetricsService) ObserveReload(collection models.Collection, duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.reloadDuration.WithLabelValues("reload_" + string(collection)).Observe(duration.Seconds())
	m.snapshotReloads.WithLabelValues(string(collection), result).Inc()
	atomic.AddUint64(&m.reloadCount, 1)
	atomic.AddUint64(&m.reloadDurationTotal, uint64(duration.Nanoseconds()))
}

// SetSnapshotVersion publishes the version of the snapshot being served.
func (m *MetricsService) SetSnapshotVersion(version uint64) {
	if m == nil {
		return
	}
	atomic.StoreUint64(&m.version, version)
	m.snapshotVersion.Set(float64(version))
}

// AssignmentSaved counts a successful create or update.
func (m *MetricsService) AssignmentSaved(operation string) {
	if m == nil {
		return
	}
	m.assignmentsSaved.WithLabelValues(operation).Inc()
}

// AssignmentsCompleted counts Pending to Completed transitions.
func (m *MetricsService) AssignmentsCompleted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.assignmentsCompleted.Add(float64(n))
}

// BulkFailures counts failed writes inside a bulk completion.
func (m *MetricsService) BulkFailures(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bulkFailures.Add(float64(n))
}

// Snapshot returns aggregated metrics suitable for the metrics summary endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	reloads := atomic.LoadUint64(&m.reloadCount)
	reloadDuration := atomic.LoadUint64(&m.reloadDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgReloadMs float64
	if reloads > 0 {
		avgReloadMs = float64(reloadDuration) / float64(reloads) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		SnapshotReloads:          reloads,
		AverageReloadDurationMs:  avgReloadMs,
		SnapshotVersion:          atomic.LoadUint64(&m.version),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
