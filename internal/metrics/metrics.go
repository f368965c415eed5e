/**
 * @description
 * Prometheus metrics for the directory server: commission, payout, outbox and
 * email counters, exposed through the standard promhttp handler.
 */
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application counters.
type Metrics struct {
	commissionsRecorded prometheus.Counter
	payoutRequests      *prometheus.CounterVec
	outboxPublished     prometheus.Counter
	outboxFailures      prometheus.Counter
	emailsDispatched    *prometheus.CounterVec
}

// New creates and registers the application metrics.
func New() *Metrics {
	m := &Metrics{
		commissionsRecorded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "affiliate_commissions_recorded_total",
				Help: "Referral commissions recorded from verified subscription payments.",
			},
		),
		payoutRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "affiliate_payout_requests_total",
				Help: "Payout requests by outcome.",
			},
			[]string{"outcome"}, // accepted, rejected, busy
		),
		outboxPublished: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "outbox_messages_published_total",
				Help: "Outbox messages successfully published to the broker.",
			},
		),
		outboxFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "outbox_publish_failures_total",
				Help: "Outbox publish attempts that failed.",
			},
		),
		emailsDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emails_dispatched_total",
				Help: "Emails handled by the email worker, by outcome.",
			},
			[]string{"outcome"}, // sent, failed, dropped
		),
	}

	prometheus.MustRegister(
		m.commissionsRecorded,
		m.payoutRequests,
		m.outboxPublished,
		m.outboxFailures,
		m.emailsDispatched,
	)

	return m
}

// CommissionRecorded counts one recorded referral commission.
func (m *Metrics) CommissionRecorded() {
	m.commissionsRecorded.Inc()
}

// PayoutRequested counts one payout request with its outcome.
func (m *Metrics) PayoutRequested(outcome string) {
	m.payoutRequests.WithLabelValues(outcome).Inc()
}

// OutboxPublished counts one published outbox message.
func (m *Metrics) OutboxPublished() {
	m.outboxPublished.Inc()
}

// OutboxFailed counts one failed publish attempt.
func (m *Metrics) OutboxFailed() {
	m.outboxFailures.Inc()
}

// EmailDispatched counts one handled email event with its outcome.
func (m *Metrics) EmailDispatched(outcome string) {
	m.emailsDispatched.WithLabelValues(outcome).Inc()
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
