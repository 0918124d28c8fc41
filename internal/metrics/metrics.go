package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "catering"

// Metrics groups the HTTP and order lifecycle collectors.
// All Observe methods are safe on a nil receiver.
type Metrics struct {
	Requests        *prometheus.CounterVec
	LatencyMS       *prometheus.HistogramVec
	OrdersCreated   *prometheus.CounterVec
	Executions      *prometheus.CounterVec
	PaymentFailures *prometheus.CounterVec
	Refunds         *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Orders created, by whether a charge was captured.",
		}, []string{"charged"}),
		Executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "executions_total",
			Help:      "Confirm/decline attempts, by outcome.",
		}, []string{"outcome"}),
		PaymentFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "failures_total",
			Help:      "Payment gateway failures, by operation and kind.",
		}, []string{"operation", "kind"}),
		Refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "refunds_total",
			Help:      "Refund outcomes for declined orders.",
		}, []string{"status"}),
	}

	reg.MustRegister(m.Requests, m.LatencyMS, m.OrdersCreated, m.Executions, m.PaymentFailures, m.Refunds)
	return m
}

// Handler exposes the collectors gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(route, method string, status int, durationMS int64) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(route).Observe(float64(durationMS))
}

func (m *Metrics) ObserveOrderCreated(charged bool) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(strconv.FormatBool(charged)).Inc()
}

func (m *Metrics) ObserveExecution(outcome string) {
	if m == nil {
		return
	}
	m.Executions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObservePaymentFailure(operation, kind string) {
	if m == nil {
		return
	}
	m.PaymentFailures.WithLabelValues(operation, kind).Inc()
}

func (m *Metrics) ObserveRefund(status string) {
	if m == nil {
		return
	}
	m.Refunds.WithLabelValues(status).Inc()
}
