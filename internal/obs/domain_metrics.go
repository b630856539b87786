package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PayPalWebhookTotal counts inbound payment webhook processing outcomes.
	PayPalWebhookTotal *prometheus.CounterVec
	// CheckoutSessionTotal counts checkout session creation outcomes.
	CheckoutSessionTotal *prometheus.CounterVec
	// PayPalRequestDuration records outbound PayPal call latency in milliseconds.
	PayPalRequestDuration *prometheus.HistogramVec
	// EmailDeliveriesTotal tracks confirmation email dispatch outcomes.
	EmailDeliveriesTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers the domain collectors.
// Safe to call from both the API and worker entrypoints.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PayPalWebhookTotal = mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paypal_webhook_total",
			Help:      "Count of processed PayPal webhooks by outcome.",
		}, []string{"event", "result"}))
		CheckoutSessionTotal = mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_session_total",
			Help:      "Count of checkout session creation outcomes.",
		}, []string{"result"}))
		PayPalRequestDuration = mustRegister(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "paypal_request_duration_ms",
			Help:      "Latency for outbound PayPal API calls in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"operation", "result"}))
		EmailDeliveriesTotal = mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_deliveries_total",
			Help:      "Count of confirmation email delivery outcomes.",
		}, []string{"result"}))
	})
}
