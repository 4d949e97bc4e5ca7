package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the job/quote/payment lifecycle. Labels carry the terminal
// value of each transition so dashboards can break flows down by outcome.
var (
	JobTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wc_job_transitions_total",
		Help: "Job status transitions by resulting status.",
	}, []string{"status"})

	QuotesSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wc_quotes_submitted_total",
		Help: "Quotes submitted by providers.",
	})

	QuoteTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wc_quote_transitions_total",
		Help: "Quote status transitions by resulting status.",
	}, []string{"status"})

	PaymentsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wc_payments_created_total",
		Help: "Payment intents created by payment type.",
	}, []string{"type"})

	EscrowTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wc_escrow_transitions_total",
		Help: "Escrow custody transitions (held, released, refunded, disputed).",
	}, []string{"status"})

	EscrowAmountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wc_escrow_amount_total",
		Help: "Dollar amounts moved through escrow by transition.",
	}, []string{"status"})
)
