// Package metrics defines and registers all custom Prometheus metrics for the
// course registration API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Collectors are registered with the default registry through promauto when
// the package is initialised; /metrics serves them together with the echo
// request metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "coursereg"

// ── Ledger metrics ────────────────────────────────────────────────────────────

// LedgerOperationsTotal counts ledger calls by outcome.
// Labels:
//   - op: "register", "unregister", "reconcile"
//   - result: "ok" or the error code (e.g. "course_full", "window_closed", "transient")
var LedgerOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_operations_total",
		Help:      "Total number of ledger operations, by operation and result.",
	},
	[]string{"op", "result"},
)

// LedgerRetriesTotal counts retries of transient ledger failures.
var LedgerRetriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_retries_total",
		Help:      "Total number of retried transient ledger failures.",
	},
	[]string{"op"},
)

// LedgerOperationDuration measures a ledger call including retries.
var LedgerOperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ledger_operation_duration_seconds",
		Help:      "Duration of ledger operations including retries.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"op"},
)

// LedgerDriftTotal counts reconciliations that had to correct the counter.
var LedgerDriftTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_drift_corrections_total",
		Help:      "Total number of reconciliations that corrected a drifted counter.",
	},
)

// CourseSeatsRegistered tracks the last committed counter per course.
var CourseSeatsRegistered = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "course_seats_registered",
		Help:      "Registered seats per course as of the last ledger event.",
	},
	[]string{"course_id"},
)

// ── Event pipeline metrics ────────────────────────────────────────────────────

// EventsQueueDepth tracks the current number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var EventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_queue_depth",
		Help:      "Current number of ledger events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// EventsErrorsTotal counts ledger events whose consumers failed.
var EventsErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_errors_total",
		Help:      "Total number of ledger events that failed processing.",
	},
	[]string{"reason"},
)

// ── Cache metrics ─────────────────────────────────────────────────────────────

// CacheLookupsTotal counts my-courses cache lookups.
// Label:
//   - result: "hit", "miss" or "error"
var CacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Total number of my-courses cache lookups, labelled by result.",
	},
	[]string{"result"},
)
