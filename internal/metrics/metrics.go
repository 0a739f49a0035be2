package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront"

// Metrics holds the payment pipeline counters.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	callbacks          *prometheus.CounterVec
	paymentRequests    prometheus.Counter
	ordersMaterialized prometheus.Counter
	amountMismatches   prometheus.Counter
	expiredRequests    prometheus.Counter
	gatewayErrors      *prometheus.CounterVec
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mpesa_callbacks_total",
			Help:      "Gateway callbacks handled, by outcome.",
		}, []string{"outcome"}),
		paymentRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_requests_created_total",
			Help:      "Payment requests recorded after the gateway accepted a push.",
		}),
		ordersMaterialized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_materialized_total",
			Help:      "Orders created from successful callbacks.",
		}),
		amountMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_amount_mismatches_total",
			Help:      "Successful callbacks whose amount differed from the payable amount.",
		}),
		expiredRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_requests_expired_total",
			Help:      "Pending payment requests failed by the expiry sweeper.",
		}),
		gatewayErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_push_errors_total",
			Help:      "STK push failures, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.callbacks,
		m.paymentRequests,
		m.ordersMaterialized,
		m.amountMismatches,
		m.expiredRequests,
		m.gatewayErrors,
	)

	return m
}

// CallbackHandled counts a callback by outcome.
func (m *Metrics) CallbackHandled(outcome string) {
	if m == nil {
		return
	}
	m.callbacks.WithLabelValues(outcome).Inc()
}

// PaymentRequestCreated counts a recorded payment request.
func (m *Metrics) PaymentRequestCreated() {
	if m == nil {
		return
	}
	m.paymentRequests.Inc()
}

// OrderMaterialized counts a created order.
func (m *Metrics) OrderMaterialized() {
	if m == nil {
		return
	}
	m.ordersMaterialized.Inc()
}

// AmountMismatch counts a rejected success callback.
func (m *Metrics) AmountMismatch() {
	if m == nil {
		return
	}
	m.amountMismatches.Inc()
}

// RequestsExpired counts n expired requests.
func (m *Metrics) RequestsExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.expiredRequests.Add(float64(n))
}

// GatewayPushError counts a failed STK push.
func (m *Metrics) GatewayPushError(reason string) {
	if m == nil {
		return
	}
	m.gatewayErrors.WithLabelValues(reason).Inc()
}
