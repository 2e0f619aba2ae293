package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	apiRequestsTotal  *prometheus.CounterVec
	apiLatencySeconds *prometheus.HistogramVec
	apiErrorsTotal    *prometheus.CounterVec

	paymentsFinalizedTotal  *prometheus.CounterVec
	callbacksRejectedTotal  *prometheus.CounterVec
	gatewayLatencySeconds   *prometheus.HistogramVec
	stalePendingPayments    prometheus.Gauge
	enrollmentsCreatedTotal *prometheus.CounterVec
	couponRedemptionsTotal  prometheus.Counter
	notificationsPublished  *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		paymentsFinalizedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_finalized_total",
			Help: "Payments settled by gateway callbacks, by outcome.",
		}, []string{"outcome"})

		callbacksRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_callbacks_rejected_total",
			Help: "Gateway callbacks rejected before reaching the ledger, by reason.",
		}, []string{"reason"})

		gatewayLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "payment_gateway_latency_seconds",
			Help:    "Latency of the gateway checkout handshake.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		}, []string{"method", "result"})

		stalePendingPayments = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "payments_stale_pending",
			Help: "Pending payments older than the reconciliation threshold.",
		})

		enrollmentsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enrollments_created_total",
			Help: "Enrollments created, by initial payment status.",
		}, []string{"payment_status"})

		couponRedemptionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coupon_redemptions_total",
			Help: "Coupon redemptions recorded.",
		})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_published_total",
			Help: "Notifications fanned out, by transport.",
		}, []string{"transport"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			paymentsFinalizedTotal,
			callbacksRejectedTotal,
			gatewayLatencySeconds,
			stalePendingPayments,
			enrollmentsCreatedTotal,
			couponRedemptionsTotal,
			notificationsPublished,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// PaymentsFinalized counts settled payments labelled success, failed or needs_review.
func PaymentsFinalized() *prometheus.CounterVec {
	RegisterMetrics()
	return paymentsFinalizedTotal
}

// CallbacksRejected counts callbacks dropped for a bad signature or payload.
func CallbacksRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return callbacksRejectedTotal
}

// GatewayLatency exposes the checkout handshake histogram.
func GatewayLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return gatewayLatencySeconds
}

// StalePendingPayments exposes the gauge set by the reconciliation sweep.
func StalePendingPayments() prometheus.Gauge {
	RegisterMetrics()
	return stalePendingPayments
}

// EnrollmentsCreated counts new enrollments.
func EnrollmentsCreated() *prometheus.CounterVec {
	RegisterMetrics()
	return enrollmentsCreatedTotal
}

// CouponRedemptions counts recorded coupon usages.
func CouponRedemptions() prometheus.Counter {
	RegisterMetrics()
	return couponRedemptionsTotal
}

// NotificationsPublishedTotal counts fan-out publishes per transport.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}
