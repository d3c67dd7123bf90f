package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fitzone/booking-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides
// lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	reservationsCreated    prometheus.Counter
	reservationsReleased   prometheus.Counter
	reservationsExpired    prometheus.Counter
	registrationsCompleted prometheus.Counter
	paymentsFailed         prometheus.Counter
	reconciliationAlerts   prometheus.Counter

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
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

	reservationsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_reservations_created_total",
		Help: "Total seat holds claimed",
	})

	reservationsReleased := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_reservations_released_total",
		Help: "Total seat holds released by cancellation",
	})

	reservationsExpired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_reservations_expired_total",
		Help: "Total seat holds expired by the sweeper",
	})

	registrationsCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_registrations_completed_total",
		Help: "Total registrations committed",
	})

	paymentsFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_payments_failed_total",
		Help: "Total payment attempts that did not settle",
	})

	reconciliationAlerts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_reconciliation_alerts_total",
		Help: "Total payments captured without a committed registration",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHitRatio, cacheHits, cacheMisses,
		reservationsCreated, reservationsReleased, reservationsExpired,
		registrationsCompleted, paymentsFailed, reconciliationAlerts, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:               registry,
		handler:                handler,
		requestDuration:        requestDuration,
		requestTotal:           requestTotal,
		cacheHitRatio:          cacheHitRatio,
		cacheHits:              cacheHits,
		cacheMisses:            cacheMisses,
		reservationsCreated:    reservationsCreated,
		reservationsReleased:   reservationsReleased,
		reservationsExpired:    reservationsExpired,
		registrationsCompleted: registrationsCompleted,
		paymentsFailed:         paymentsFailed,
		reconciliationAlerts:   reconciliationAlerts,
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
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ReservationCreated counts a claimed seat hold.
func (m *MetricsService) ReservationCreated() {
	if m != nil {
		m.reservationsCreated.Inc()
	}
}

// ReservationReleased counts a hold returned by cancellation.
func (m *MetricsService) ReservationReleased() {
	if m != nil {
		m.reservationsReleased.Inc()
	}
}

// ReservationExpired counts a hold reclaimed by the sweeper.
func (m *MetricsService) ReservationExpired() {
	if m != nil {
		m.reservationsExpired.Inc()
	}
}

// RegistrationCompleted counts a committed registration.
func (m *MetricsService) RegistrationCompleted() {
	if m != nil {
		m.registrationsCompleted.Inc()
	}
}

// PaymentFailed counts a payment attempt that did not settle.
func (m *MetricsService) PaymentFailed() {
	if m != nil {
		m.paymentsFailed.Inc()
	}
}

// ReconciliationAlert counts a captured payment without a committed registration.
func (m *MetricsService) ReconciliationAlert() {
	if m != nil {
		m.reconciliationAlerts.Inc()
	}
}

// Snapshot returns aggregated metrics suitable for ops endpoints. The active
// reservation count is supplied by the caller since it lives in the database.
func (m *MetricsService) Snapshot(reservationsActive int64) models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	totalLookups := hits + misses
	if totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		ReservationsActive:       reservationsActive,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
