// Package observability exposes the engine's Prometheus metrics.
//
// Metrics are package-level promauto collectors registered against the
// default registry; the HTTP server mounts promhttp at /metrics. Engine
// operations record outcomes here after their transaction commits, so
// counters never reflect rolled-back state.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Campaign Metrics ───────────────────────────────────────────────────────

// CampaignsByState tracks the current number of campaigns per state.
var CampaignsByState = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "fundra",
	Subsystem: "campaigns",
	Name:      "by_state",
	Help:      "Current number of campaigns in each state.",
}, []string{"state"})

// CampaignTransitions tracks state transitions by edge.
var CampaignTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fundra",
	Subsystem: "campaigns",
	Name:      "transitions_total",
	Help:      "Total campaign state transitions by from/to edge.",
}, []string{"from", "to"})

// InvestmentsRecorded tracks accepted investment deposits.
var InvestmentsRecorded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fundra",
	Subsystem: "campaigns",
	Name:      "investments_total",
	Help:      "Total investment deposits accepted.",
})

// AmountInvested tracks the cumulative invested amount in smallest units.
var AmountInvested = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fundra",
	Subsystem: "campaigns",
	Name:      "amount_invested_units_total",
	Help:      "Cumulative invested amount in smallest currency units.",
})

// ─── Escrow Metrics ─────────────────────────────────────────────────────────

// EscrowHeld tracks the total principal currently held in escrow.
var EscrowHeld = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "fundra",
	Subsystem: "escrow",
	Name:      "held_units",
	Help:      "Total principal currently held across all escrow accounts.",
})

// Settlements tracks completed settlements by kind.
var Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fundra",
	Subsystem: "escrow",
	Name:      "settlements_total",
	Help:      "Total completed settlements by kind (release, refund).",
}, []string{"kind"})

// PayoutFailures tracks transfer failures during settlement.
var PayoutFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fundra",
	Subsystem: "escrow",
	Name:      "payout_failures_total",
	Help:      "Total payout transfer failures during settlement.",
})

// ─── Yield Metrics ──────────────────────────────────────────────────────────

// YieldAccrued tracks cumulative yield minted by compounding.
var YieldAccrued = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fundra",
	Subsystem: "yield",
	Name:      "accrued_units_total",
	Help:      "Cumulative yield accrued across all stakes in smallest units.",
})

// OpenStakes tracks the number of unharvested stakes.
var OpenStakes = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "fundra",
	Subsystem: "yield",
	Name:      "open_stakes",
	Help:      "Number of stakes not yet harvested.",
})

// ─── Certificate Metrics ────────────────────────────────────────────────────

// CertificatesIssued tracks issued share certificates.
var CertificatesIssued = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fundra",
	Subsystem: "certificates",
	Name:      "issued_total",
	Help:      "Total share certificates issued.",
})

// CertificatesRevoked tracks revoked certificates.
var CertificatesRevoked = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fundra",
	Subsystem: "certificates",
	Name:      "revoked_total",
	Help:      "Total share certificates revoked.",
})

// ─── Engine Metrics ─────────────────────────────────────────────────────────

// OperationDuration tracks engine operation latency by operation and outcome.
var OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "fundra",
	Subsystem: "engine",
	Name:      "operation_seconds",
	Help:      "Engine operation latency in seconds.",
	Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
}, []string{"operation", "outcome"})

// EventsPublished tracks events published to the engine log.
var EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fundra",
	Subsystem: "engine",
	Name:      "events_published_total",
	Help:      "Total events published by type.",
}, []string{"type"})

// ObserveOperation records one engine operation's duration and outcome.
func ObserveOperation(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	OperationDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
}
