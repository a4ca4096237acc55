// Package events carries the guard's lifecycle events to subscribers. Fan-out
// is synchronous and in subscription order; a misbehaving subscriber is
// isolated so it cannot starve the ones after it.
package events

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vietddude/staleguard/internal/core/domain"
)

// Subscriber receives every emitted event.
type Subscriber func(domain.Event)

// EmitOptions tune a single emission.
type EmitOptions struct {
	// Silent suppresses only the built-in logging subscriber. Custom
	// subscribers still see the event.
	Silent bool
}

// Bus is a synchronous publish/subscribe channel for lifecycle events. It
// also owns the flag gating whether the default retry behavior (scheduling
// reloads) is active at all.
type Bus struct {
	mu    sync.RWMutex
	subs  map[int]Subscriber
	order []int
	next  int

	retryEnabled atomic.Bool
	log          *slog.Logger
}

// NewBus creates a bus with default retry enabled.
func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	b := &Bus{subs: make(map[int]Subscriber), log: log}
	b.retryEnabled.Store(true)
	return b
}

// Subscribe registers fn and returns its unsubscribe func. Unsubscribing one
// subscriber does not affect the others.
func (b *Bus) Subscribe(fn Subscriber) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.subs[id] = fn
	b.order = append(b.order, id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// Emit fans ev out to all current subscribers in subscription order. It never
// panics to the caller; a panicking subscriber is logged and the remaining
// subscribers still receive the event.
func (b *Bus) Emit(ev domain.Event, opts ...EmitOptions) {
	var o EmitOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	if !o.Silent {
		b.logEvent(ev)
	}

	b.mu.RLock()
	ids := make([]int, len(b.order))
	copy(ids, b.order)
	subs := make(map[int]Subscriber, len(b.subs))
	for id, fn := range b.subs {
		subs[id] = fn
	}
	b.mu.RUnlock()

	for _, id := range ids {
		fn, ok := subs[id]
		if !ok {
			continue
		}
		b.deliver(fn, ev)
	}
}

func (b *Bus) deliver(fn Subscriber, ev domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event subscriber panicked", "event", ev.Type, "panic", r)
		}
	}()
	fn(ev)
}

func (b *Bus) logEvent(ev domain.Event) {
	args := []any{"event", string(ev.Type)}
	if ev.RetryID != "" {
		args = append(args, "retry_id", ev.RetryID)
	}
	if ev.Err != nil {
		args = append(args, "error", ev.Err)
	}
	switch ev.Type {
	case domain.EventRetryAttempt, domain.EventLazyRetryAttempt:
		args = append(args, "attempt", ev.Attempt, "delay", ev.Delay)
	case domain.EventRetryExhausted:
		args = append(args, "final_attempt", ev.Attempt)
	case domain.EventRetryReset:
		args = append(args, "previous_attempt", ev.Attempt, "elapsed", ev.Elapsed)
	case domain.EventChunkError:
		args = append(args, "is_retrying", ev.IsRetrying)
	case domain.EventNewDeployDetected:
		args = append(args, "previous", ev.PreviousVersion, "current", ev.CurrentVersion)
	}
	b.log.Info("staleguard event", args...)
}

// SetDefaultRetryEnabled toggles the default retry behavior. When disabled
// the guard still announces chunk errors but performs no state mutation and
// schedules nothing.
func (b *Bus) SetDefaultRetryEnabled(enabled bool) {
	b.retryEnabled.Store(enabled)
}

// DefaultRetryEnabled reports whether the default retry behavior is active.
func (b *Bus) DefaultRetryEnabled() bool {
	return b.retryEnabled.Load()
}
