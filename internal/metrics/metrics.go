package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookathing",
			Name:      "http_requests_total",
			Help:      "Count of API requests by route.",
		},
		[]string{"route"},
	)

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookathing",
			Name:      "booking_created_total",
			Help:      "Count of bookings created by calendar.",
		},
		[]string{"calendar"},
	)

	bookingDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookathing",
			Name:      "booking_deleted_total",
			Help:      "Count of bookings deleted by calendar.",
		},
		[]string{"calendar"},
	)

	storageFallback = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookathing",
			Name:      "storage_fallback_total",
			Help:      "Count of store operations served by the transient fallback.",
		},
		[]string{"op"},
	)

	storageDegraded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bookathing",
			Name:      "storage_degraded",
			Help:      "1 while the primary store is considered unavailable.",
		},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bookathing",
			Name:      "rate_limited_total",
			Help:      "Count of requests rejected by the rate limiter.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingCreated, bookingDeleted, storageFallback, storageDegraded, rateLimited)
	})
}

func IncHTTP(route string) {
	httpRequests.WithLabelValues(route).Inc()
}

func IncBookingCreated(calendar string) {
	bookingCreated.WithLabelValues(calendarLabel(calendar)).Inc()
}

func IncBookingDeleted(calendar string) {
	bookingDeleted.WithLabelValues(calendarLabel(calendar)).Inc()
}

func IncStorageFallback(op string) {
	storageFallback.WithLabelValues(op).Inc()
}

func SetStorageDegraded(degraded bool) {
	if degraded {
		storageDegraded.Set(1)
		return
	}
	storageDegraded.Set(0)
}

func IncRateLimited() {
	rateLimited.Inc()
}

func calendarLabel(calendar string) string {
	if calendar == "" {
		return "default"
	}
	return calendar
}
