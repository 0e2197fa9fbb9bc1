// Package metrics exposes Prometheus collectors for the storefront.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fashalt"

type Metrics struct {
	registry *prometheus.Registry

	httpDuration     *prometheus.HistogramVec
	ordersCreated    *prometheus.CounterVec
	checkoutFailures *prometheus.CounterVec
	invoiceFailures  prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders committed, by payment method",
		}, []string{"payment_method"}),
		checkoutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_failures_total",
			Help:      "Rejected or failed checkouts, by error kind",
		}, []string{"kind"}),
		invoiceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_delivery_failures_total",
			Help:      "Invoices that could not be rendered or emailed",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpDuration,
		m.ordersCreated,
		m.checkoutFailures,
		m.invoiceFailures,
	)
	return m
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) OrderCreated(paymentMethod string) {
	m.ordersCreated.WithLabelValues(paymentMethod).Inc()
}

func (m *Metrics) CheckoutFailed(kind string) {
	m.checkoutFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) InvoiceFailed() {
	m.invoiceFailures.Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
