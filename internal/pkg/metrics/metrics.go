// Package metrics exposes Prometheus counters for settlement, payouts,
// account linking and HTTP traffic.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rocketrides"

var (
	settlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Contract acceptance attempts by outcome.",
		},
		[]string{"outcome"},
	)

	settledAmountTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settled_amount_minor_total",
			Help:      "Sum of settled contract amounts in minor currency units.",
		},
		[]string{"currency"},
	)

	payoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payouts_total",
			Help:      "Payout requests by outcome.",
		},
		[]string{"outcome"},
	)

	accountLinksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_links_total",
			Help:      "Stripe account linking steps by outcome.",
		},
		[]string{"outcome"},
	)

	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Processor webhook deliveries by outcome.",
		},
		[]string{"outcome"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		settlementsTotal,
		settledAmountTotal,
		payoutsTotal,
		accountLinksTotal,
		webhookEventsTotal,
		httpRequestsTotal,
		httpRequestDuration,
	)
}

// Settlement outcomes.
const (
	SettlementSettled  = "settled"
	SettlementFailed   = "failed"
	SettlementRejected = "rejected"
)

// Payout outcomes.
const (
	PayoutPaid    = "paid"
	PayoutSkipped = "skipped"
	PayoutFailed  = "failed"
)

// Account link outcomes.
const (
	LinkStarted        = "started"
	LinkCompleted      = "completed"
	LinkCsrfMismatch   = "csrf_mismatch"
	LinkExchangeFailed = "exchange_failed"
)

func ObserveSettlement(outcome string) {
	settlementsTotal.WithLabelValues(outcome).Inc()
}

func ObserveSettledAmount(currency string, amount int64) {
	settledAmountTotal.WithLabelValues(currency).Add(float64(amount))
}

func ObservePayout(outcome string) {
	payoutsTotal.WithLabelValues(outcome).Inc()
}

func ObserveAccountLink(outcome string) {
	accountLinksTotal.WithLabelValues(outcome).Inc()
}

func ObserveWebhook(outcome string) {
	webhookEventsTotal.WithLabelValues(outcome).Inc()
}

// Middleware records request counts and latencies per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		labels := []string{c.Method(), route, strconv.Itoa(status)}
		httpRequestsTotal.WithLabelValues(labels...).Inc()
		httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
