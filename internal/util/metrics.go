package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Order creations refused before a row was written",
	}, []string{"reason"})

	OrdersDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_delivered_total",
		Help: "Orders whose stock items were claimed and delivered",
	})

	OrdersCancelledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	}, []string{"reason"})

	OrdersUnfulfilledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_unfulfilled_total",
		Help: "Paid orders that could not claim stock",
	})

	OrdersPaidAfterCancelTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_paid_after_cancel_total",
		Help: "Approved payments that arrived for an already cancelled order",
	})

	StockClaimLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_claim_latency_seconds",
		Help:    "Latency of the stock claim transaction",
		Buckets: prometheus.DefBuckets,
	})

	PaymentsInitiatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_initiated_total",
		Help: "Payments created at a gateway",
	}, []string{"gateway", "method"})

	PaymentsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_failed_total",
		Help: "Gateway calls that failed while creating a payment",
	}, []string{"gateway"})

	PaymentProcessingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_processing_latency_seconds",
		Help:    "Latency of gateway payment creation",
		Buckets: prometheus.DefBuckets,
	}, []string{"gateway"})

	WebhooksReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhooks_received_total",
		Help: "Webhook deliveries by gateway and outcome",
	}, []string{"gateway", "result"})

	GatewayBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gateway_breaker_state",
		Help: "Circuit breaker state per gateway (0 closed, 1 half-open, 2 open)",
	}, []string{"gateway"})

	TicketsOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_opened_total",
		Help: "Support tickets opened or reopened",
	})

	TicketsClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_closed_total",
		Help: "Support tickets closed",
	})

	TicketChannelsPurgedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticket_channels_purged_total",
		Help: "Closed ticket channels deleted after retention",
	})

	AutomodActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "automod_actions_total",
		Help: "Messages removed by the auto-moderation filter",
	}, []string{"rule"})

	ModerationActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_actions_total",
		Help: "Moderation actions recorded",
	}, []string{"action"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
