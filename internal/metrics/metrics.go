// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentgate_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contentgate_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	EntitlementDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentgate_entitlement_decisions_total",
			Help: "Entitlement decisions by access type and reason",
		},
		[]string{"access_type", "reason"},
	)

	OTPVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentgate_otp_verifications_total",
			Help: "OTP verification attempts by outcome",
		},
		[]string{"outcome"},
	)

	PaymentsConfirmed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentgate_payments_confirmed_total",
			Help: "Payment confirmations by purpose and outcome",
		},
		[]string{"purpose", "outcome"},
	)

	GatewayCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentgate_gateway_calls_total",
			Help: "Payment gateway calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	SubscriptionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contentgate_subscriptions_expired_total",
			Help: "Subscriptions moved to EXPIRED by the sweep",
		},
	)

	CredentialsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contentgate_credentials_purged_total",
			Help: "Expired credentials reclaimed by the purge job",
		},
	)
)
