// Package retry recovers individual dynamic loads before the page-level
// machinery gets involved: a failing load is retried on its own bounded delay
// schedule, and only on final exhaustion may it hand off to the guard for a
// full reload.
package retry

import (
	"context"
	"time"

	"github.com/vietddude/staleguard/internal/classify"
	"github.com/vietddude/staleguard/internal/core/domain"
	"github.com/vietddude/staleguard/internal/core/events"
)

// AbortError marks cancellation by the caller, so callers can tell "aborted"
// apart from "load failed".
type AbortError struct {
	Err error
}

func (e *AbortError) Error() string { return "load retry aborted: " + e.Err.Error() }
func (e *AbortError) Unwrap() error { return e.Err }

// Handoff escalates an exhausted load failure to the reload orchestrator.
type Handoff interface {
	AttemptReload(ctx context.Context, cause error)
}

// Config controls one retried load.
type Config struct {
	// Delays separates attempts: retry i waits Delays[i-1]. Nil falls back to
	// DefaultDelays; an explicit empty schedule means a single attempt.
	Delays []time.Duration

	// OnRetry is invoked before each retry with (attempt, delay). It runs in
	// a protected wrapper; a panicking callback cannot corrupt the retry flow.
	OnRetry func(attempt int, delay time.Duration)

	// ReloadOnFailure hands the final error to Guard when it classifies as a
	// chunk error.
	ReloadOnFailure bool

	// Guard receives the handoff. Nil disables escalation.
	Guard Handoff

	// Bus receives lazy-retry lifecycle events. Nil disables emission.
	Bus *events.Bus

	// IsChunkError overrides the default chunk-error classifier.
	IsChunkError func(error) bool
}

// DefaultDelays is the lazy-retry schedule used when none is configured.
var DefaultDelays = []time.Duration{500 * time.Millisecond, 1 * time.Second}

// Do calls load until it succeeds or the delay schedule is exhausted. The
// first success is returned as-is; on exhaustion the last real error is
// returned (and optionally escalated to the guard), never a synthetic one.
//
// Cancellation is cooperative through ctx: an already-cancelled context
// rejects before the first call, and cancellation during an inter-attempt
// wait stops the pending timer and rejects with an AbortError.
func Do[T any](ctx context.Context, load func(context.Context) (T, error), cfg Config) (T, error) {
	var zero T

	if err := ctx.Err(); err != nil {
		return zero, &AbortError{Err: err}
	}

	isChunk := cfg.IsChunkError
	if isChunk == nil {
		isChunk = classify.IsChunkError
	}
	if cfg.Delays == nil {
		cfg.Delays = DefaultDelays
	}

	totalAttempts := len(cfg.Delays) + 1
	var lastErr error

	for attempt := 0; attempt <= len(cfg.Delays); attempt++ {
		v, err := load(ctx)
		if err == nil {
			if attempt > 0 {
				emit(cfg.Bus, domain.Event{
					Type:          domain.EventLazyRetrySuccess,
					Attempt:       attempt,
					TotalAttempts: totalAttempts,
				})
			}
			return v, nil
		}
		lastErr = err

		if attempt == len(cfg.Delays) {
			break
		}

		delay := cfg.Delays[attempt]
		emit(cfg.Bus, domain.Event{
			Type:          domain.EventLazyRetryAttempt,
			Err:           err,
			Attempt:       attempt + 1,
			Delay:         delay,
			TotalAttempts: totalAttempts,
		})
		callOnRetry(cfg.OnRetry, attempt+1, delay)

		if err := wait(ctx, delay); err != nil {
			return zero, &AbortError{Err: err}
		}
	}

	willReload := cfg.ReloadOnFailure && cfg.Guard != nil && isChunk(lastErr)
	emit(cfg.Bus, domain.Event{
		Type:          domain.EventLazyRetryExhaust,
		Err:           lastErr,
		Attempt:       totalAttempts,
		TotalAttempts: totalAttempts,
		WillReload:    willReload,
	})
	if willReload {
		cfg.Guard.AttemptReload(ctx, lastErr)
	}

	return zero, lastErr
}

// wait sleeps for d, honoring cancellation. The timer is stopped on
// cancellation so nothing fires later.
func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func emit(bus *events.Bus, ev domain.Event) {
	if bus != nil {
		bus.Emit(ev)
	}
}

func callOnRetry(fn func(int, time.Duration), attempt int, delay time.Duration) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			// A host callback must not break the retry flow.
		}
	}()
	fn(attempt, delay)
}
