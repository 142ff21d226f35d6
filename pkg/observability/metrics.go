package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hostedpay/saferpay-service/internal/domain"
)

var (
	// Gateway call metrics
	gatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saferpay_gateway_requests_total",
			Help: "Total number of Saferpay gateway calls",
		},
		[]string{"operation", "outcome"},
	)

	gatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "saferpay_gateway_request_duration_seconds",
			Help:    "Duration of Saferpay gateway calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Payment lifecycle metrics
	paymentTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_status_transitions_total",
			Help: "Total number of payment status transitions",
		},
		[]string{"status"},
	)
)

// ObserveGatewayCall records the outcome and duration of one gateway call
func ObserveGatewayCall(operation string, err error, started time.Time) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		if code := domain.GetErrorCode(err); code != "" {
			outcome = string(code)
		}
	}
	gatewayRequestsTotal.WithLabelValues(operation, outcome).Inc()
	gatewayRequestDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// ObservePaymentTransition records a payment reaching a lifecycle status
func ObservePaymentTransition(status domain.PaymentStatus) {
	paymentTransitionsTotal.WithLabelValues(string(status)).Inc()
}
