package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-appointment-api/internal/models"
)

// MetricsSnapshot is the JSON view of the in-process counters.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	BookingsTotal            uint64    `json:"bookingsTotal"`
	BookingsRejected         uint64    `json:"bookingsRejected"`
	TransitionsTotal         uint64    `json:"transitionsTotal"`
	ConflictsTotal           uint64    `json:"conflictsTotal"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	AuditDropped             uint64    `json:"auditDropped"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
// All methods are safe on a nil receiver.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	bookings        *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	conflicts       prometheus.Counter
	cacheLatency    prometheus.Histogram
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	auditDropped    prometheus.Counter

	requestCount         uint64
	requestDurationTotal uint64
	bookingCount         uint64
	bookingRejectedCount uint64
	transitionCount      uint64
	conflictCount        uint64
	cacheHitCount        uint64
	cacheMissCount       uint64
	auditDroppedCount    uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appointment_bookings_total",
			Help: "Booking attempts by outcome",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appointment_transitions_total",
			Help: "Persisted status transitions",
		}, []string{"from", "to"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appointment_write_conflicts_total",
			Help: "Status writes rejected because the record changed underneath",
		}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		}),
		auditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_entries_dropped_total",
			Help: "Audit entries that could not be queued",
		}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(m.requestDuration, m.requestTotal, m.bookings, m.transitions, m.conflicts,
		m.cacheLatency, m.cacheHits, m.cacheMisses, m.auditDropped, goroutines)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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

// RecordBooking counts a booking attempt.
func (m *MetricsService) RecordBooking(accepted bool) {
	if m == nil {
		return
	}
	if accepted {
		m.bookings.WithLabelValues("accepted").Inc()
		atomic.AddUint64(&m.bookingCount, 1)
		return
	}
	m.bookings.WithLabelValues("rejected").Inc()
	atomic.AddUint64(&m.bookingRejectedCount, 1)
}

// RecordTransition counts a persisted status change.
func (m *MetricsService) RecordTransition(from, to models.AppointmentStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
	atomic.AddUint64(&m.transitionCount, 1)
}

// RecordConflict counts a rejected stale write.
func (m *MetricsService) RecordConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
	atomic.AddUint64(&m.conflictCount, 1)
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
		return
	}
	m.cacheMisses.Inc()
	atomic.AddUint64(&m.cacheMissCount, 1)
}

// RecordAuditDropped counts an audit entry lost before persistence.
func (m *MetricsService) RecordAuditDropped() {
	if m == nil {
		return
	}
	m.auditDropped.Inc()
	atomic.AddUint64(&m.auditDroppedCount, 1)
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		BookingsTotal:            atomic.LoadUint64(&m.bookingCount),
		BookingsRejected:         atomic.LoadUint64(&m.bookingRejectedCount),
		TransitionsTotal:         atomic.LoadUint64(&m.transitionCount),
		ConflictsTotal:           atomic.LoadUint64(&m.conflictCount),
		CacheHits:                hits,
		CacheMisses:              misses,
		CacheHitRatio:            ratio,
		AuditDropped:             atomic.LoadUint64(&m.auditDroppedCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
