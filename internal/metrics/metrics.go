// Package metrics exposes Prometheus counters for the guard lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vietddude/staleguard/internal/core/domain"
	"github.com/vietddude/staleguard/internal/core/events"
)

var (
	// ChunkErrors tracks captured chunk errors, split by whether the default
	// retry will act on them.
	ChunkErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staleguard_chunk_errors_total",
			Help: "Total number of captured chunk errors",
		},
		[]string{"retrying"},
	)

	// RetryAttempts tracks scheduled reload attempts.
	RetryAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "staleguard_retry_attempts_total",
			Help: "Total number of scheduled reload attempts",
		},
	)

	// RetryResets tracks cycle resets.
	RetryResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "staleguard_retry_resets_total",
			Help: "Total number of retry cycle resets",
		},
	)

	// RetryExhausted tracks cycles that ran out of attempts.
	RetryExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "staleguard_retry_exhausted_total",
			Help: "Total number of exhausted retry cycles",
		},
	)

	// FallbackShown tracks fallback UI renders.
	FallbackShown = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "staleguard_fallback_shown_total",
			Help: "Total number of fallback UI renders",
		},
	)

	// LazyRetries tracks lazy-load retry outcomes.
	LazyRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staleguard_lazy_retries_total",
			Help: "Total number of lazy-load retry events",
		},
		[]string{"outcome"},
	)

	// DeploysDetected tracks version changes seen by the poller.
	DeploysDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "staleguard_deploys_detected_total",
			Help: "Total number of new deploys detected by version polling",
		},
	)
)

// Observe subscribes a counting sink to the bus and returns its unsubscribe
// func.
func Observe(bus *events.Bus) func() {
	return bus.Subscribe(func(ev domain.Event) {
		switch ev.Type {
		case domain.EventChunkError:
			ChunkErrors.WithLabelValues(boolLabel(ev.IsRetrying)).Inc()
		case domain.EventRetryAttempt:
			RetryAttempts.Inc()
		case domain.EventRetryReset:
			RetryResets.Inc()
		case domain.EventRetryExhausted:
			RetryExhausted.Inc()
		case domain.EventFallbackShown:
			FallbackShown.Inc()
		case domain.EventLazyRetryAttempt:
			LazyRetries.WithLabelValues("attempt").Inc()
		case domain.EventLazyRetrySuccess:
			LazyRetries.WithLabelValues("success").Inc()
		case domain.EventLazyRetryExhaust:
			LazyRetries.WithLabelValues("exhausted").Inc()
		case domain.EventNewDeployDetected:
			DeploysDetected.Inc()
		}
	})
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
