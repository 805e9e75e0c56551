package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ═══════════════════════════════════════════════════════════════════════════
// Prometheus Metrics
// ═══════════════════════════════════════════════════════════════════════════

// ─── Ledger Metrics ─────────────────────────────────────────────────────────

// LedgerEntries counts applied ledger entries by type.
var LedgerEntries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "takax",
	Subsystem: "ledger",
	Name:      "entries_total",
	Help:      "Total ledger entries applied by entry type.",
}, []string{"type"})

// LedgerAmount sums applied amounts (in coins) by entry type.
var LedgerAmount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "takax",
	Subsystem: "ledger",
	Name:      "amount_total",
	Help:      "Absolute coin amount moved by entry type.",
}, []string{"type"})

// LedgerDuplicates counts mutations skipped because their key was applied.
var LedgerDuplicates = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "takax",
	Subsystem: "ledger",
	Name:      "duplicates_total",
	Help:      "Mutations skipped because the idempotency key was already applied.",
}, []string{"type"})

// LedgerMismatches counts users whose balance disagrees with history.
var LedgerMismatches = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "takax",
	Subsystem: "ledger",
	Name:      "reconcile_mismatches_total",
	Help:      "Users found with a balance that differs from their ledger sum.",
})

// ─── Eligibility Metrics ────────────────────────────────────────────────────

// EligibilityRejections counts denied actions by action and reason.
var EligibilityRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "takax",
	Subsystem: "eligibility",
	Name:      "rejections_total",
	Help:      "Actions denied by the eligibility evaluator.",
}, []string{"action", "reason"})

// ─── Notification Metrics ───────────────────────────────────────────────────

// NotificationsSent counts delivered notifications by channel.
var NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "takax",
	Subsystem: "notify",
	Name:      "sent_total",
	Help:      "Notifications delivered by channel (inapp, chat).",
}, []string{"channel"})

// NotificationFailures counts failed notifications by channel.
var NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "takax",
	Subsystem: "notify",
	Name:      "failures_total",
	Help:      "Notifications that could not be delivered, by channel.",
}, []string{"channel"})

// NotificationsDropped counts notifications dropped because the queue was full.
var NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "takax",
	Subsystem: "notify",
	Name:      "dropped_total",
	Help:      "Notifications dropped because all senders were busy.",
})

// ─── Serializer Metrics ─────────────────────────────────────────────────────

// LaneWait observes how long a command waited for its user lane.
var LaneWait = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "takax",
	Subsystem: "serializer",
	Name:      "lane_wait_seconds",
	Help:      "Time a command waited before its lane ran it.",
	Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
})

// ─── Operation Metrics ──────────────────────────────────────────────────────

// OperationDuration observes service operation latency by name and outcome.
var OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "takax",
	Subsystem: "service",
	Name:      "operation_seconds",
	Help:      "Service operation latency.",
	Buckets:   prometheus.DefBuckets,
}, []string{"operation", "outcome"})

// ─── HTTP Metrics ───────────────────────────────────────────────────────────

// HTTPRequests counts requests by route pattern and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "takax",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by route and status.",
}, []string{"route", "status"})

// HTTPDuration observes request latency by route.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "takax",
	Subsystem: "http",
	Name:      "request_seconds",
	Help:      "HTTP request latency by route.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route"})

// ─── Operation Timer ────────────────────────────────────────────────────────

// Op times one service operation.
type Op struct {
	name  string
	start time.Time
}

// StartOp begins timing an operation.
func StartOp(name string) *Op {
	return &Op{name: name, start: time.Now()}
}

// End records the operation outcome and returns its duration.
func (o *Op) End(err error) time.Duration {
	d := time.Since(o.start)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	OperationDuration.WithLabelValues(o.name, outcome).Observe(d.Seconds())
	return d
}
