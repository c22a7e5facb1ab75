// Package metrics holds the Prometheus collectors shared by the gate, the dispatcher
// and the HTTP server. Collectors register with the default registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GateVerdicts counts Topic Gate verdicts per policy.
	GateVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmassist_gate_verdicts_total",
			Help: "Total number of topic gate verdicts",
		},
		[]string{"policy", "verdict"},
	)

	// GateCacheHits counts classification verdicts served from the cache.
	GateCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pmassist_gate_cache_hits_total",
			Help: "Total number of topic gate verdicts served from cache",
		},
	)

	// Exchanges counts finished exchanges by outcome.
	Exchanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmassist_exchanges_total",
			Help: "Total number of exchanges by outcome",
		},
		[]string{"outcome"},
	)

	// RemoteCallDuration observes generateContent latency per generation profile.
	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pmassist_remote_call_duration_seconds",
			Help:    "Remote generateContent call duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"profile"},
	)

	// FinishReasons counts candidate finish reasons reported by the remote model.
	FinishReasons = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmassist_finish_reasons_total",
			Help: "Total number of remote finish reasons",
		},
		[]string{"reason"},
	)
)

// RecordGateVerdict records a gate verdict.
func RecordGateVerdict(policy string, allowed bool) {
	verdict := "rejected"
	if allowed {
		verdict = "accepted"
	}
	GateVerdicts.WithLabelValues(policy, verdict).Inc()
}

// RecordExchange records the outcome of one exchange.
func RecordExchange(outcome string) {
	Exchanges.WithLabelValues(outcome).Inc()
}

// RecordRemoteCall records the latency of one remote call.
func RecordRemoteCall(profile string, d time.Duration) {
	RemoteCallDuration.WithLabelValues(profile).Observe(d.Seconds())
}

// RecordFinishReason records a candidate finish reason.
func RecordFinishReason(reason string) {
	if reason == "" {
		reason = "UNSPECIFIED"
	}
	FinishReasons.WithLabelValues(reason).Inc()
}
