// Package guard contains the retry orchestrator: the state machine deciding,
// on every captured chunk error, whether to schedule a reload, reset a
// dormant cycle, or render the terminal fallback. The page is expected to die
// and be recreated on every retry, so all cross-attempt state lives in the
// page address and the session store, never in this process.
package guard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/staleguard/internal/classify"
	"github.com/vietddude/staleguard/internal/core/domain"
	"github.com/vietddude/staleguard/internal/core/events"
	"github.com/vietddude/staleguard/internal/core/session"
	"github.com/vietddude/staleguard/internal/core/state"
	"github.com/vietddude/staleguard/internal/infra/page"
	"github.com/vietddude/staleguard/internal/report"
)

// Config controls the retry schedule and the fallback surface. Immutable for
// the lifetime of the guard.
type Config struct {
	// ReloadDelays is the ordered delay schedule: attempt i waits
	// ReloadDelays[i] before navigating. An attempt past the end of the
	// schedule is exhausted.
	ReloadDelays []time.Duration

	// UseRetryID carries cycle identity through the page address. When false
	// the state round-trips through a bare attempt counter and retries use an
	// unconditional refresh.
	UseRetryID bool

	// EnableRetryReset restarts long-dormant cycles from attempt zero.
	EnableRetryReset bool

	// MinTimeBetweenResets rate-limits cycle resets.
	MinTimeBetweenResets time.Duration

	// FallbackHTML is the static recovery markup; empty disables rendering.
	FallbackHTML string

	// FallbackSelector is where the markup is injected.
	FallbackSelector string

	// IgnoreMessages silences default event logging for matching errors.
	IgnoreMessages []string
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		ReloadDelays:         []time.Duration{1 * time.Second, 2 * time.Second, 5 * time.Second},
		UseRetryID:           true,
		EnableRetryReset:     true,
		MinTimeBetweenResets: 30 * time.Second,
		FallbackSelector:     "body",
	}
}

// RetryIDSelector matches elements displaying the current retry identifier
// inside the fallback markup.
const RetryIDSelector = "[data-staleguard-retry-id]"

// Guard is the retry orchestrator. All mutable state is held here; Reset
// gives tests a clean instance without rebuilding the wiring.
type Guard struct {
	cfg    Config
	page   page.Page
	codec  *state.Codec
	store  *session.Store
	bus    *events.Bus
	beacon report.Sender
	log    *slog.Logger

	now   func() time.Time
	after func(time.Duration, func())

	mu              sync.Mutex
	reloadScheduled bool
	waiting         bool
	fallbackShown   bool
	currentAttempt  int
}

// New creates a guard over one supervised page.
func New(
	cfg Config,
	pg page.Page,
	st *session.Store,
	bus *events.Bus,
	beacon report.Sender,
	log *slog.Logger,
) *Guard {
	if log == nil {
		log = slog.Default()
	}
	if cfg.FallbackSelector == "" {
		cfg.FallbackSelector = "body"
	}
	if beacon == nil {
		beacon = report.Nop{}
	}
	if bus == nil {
		bus = events.NewBus(log)
	}
	return &Guard{
		cfg:    cfg,
		page:   pg,
		codec:  state.NewCodec(pg, log),
		store:  st,
		bus:    bus,
		beacon: beacon,
		log:    log,
		now:    time.Now,
		after:  func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
	}
}

// Snapshot is a read-only view for retry/loading UI.
type Snapshot struct {
	CurrentAttempt  int  `json:"currentAttempt"`
	IsWaiting       bool `json:"isWaiting"`
	IsFallbackShown bool `json:"isFallbackShown"`
}

// Snapshot returns the guard's current observable state.
func (g *Guard) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Snapshot{
		CurrentAttempt:  g.currentAttempt,
		IsWaiting:       g.waiting,
		IsFallbackShown: g.fallbackShown,
	}
}

// Reset clears all in-process state. Test isolation only: it does not touch
// the page address or the session store, and it does not cancel a reload
// already armed.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reloadScheduled = false
	g.waiting = false
	g.fallbackShown = false
	g.currentAttempt = 0
}

// AttemptReload consumes one captured chunk error and runs the state machine:
// announce, maybe reset the cycle, then schedule a deferred navigation,
// render the fallback, or stop. It never returns an error; every
// infrastructure failure inside is absorbed with a best-effort default.
//
// Events are emitted in a fixed order per invocation:
// chunk-error, [retry-reset], {retry-attempt | retry-exhausted | none},
// [fallback-ui-shown].
func (g *Guard) AttemptReload(ctx context.Context, cause error) {
	g.mu.Lock()
	if g.reloadScheduled {
		g.mu.Unlock()
		g.log.Info("reload already scheduled, ignoring concurrent chunk error",
			"error", errString(cause))
		return
	}
	g.mu.Unlock()

	retryID, attempt := g.resolveState()
	delays := g.cfg.ReloadDelays
	silent := classify.ShouldIgnore([]string{errString(cause)}, g.cfg.IgnoreMessages)

	isRetrying := g.bus.DefaultRetryEnabled() && attempt >= 0 && attempt < len(delays)
	g.bus.Emit(domain.Event{
		Type:       domain.EventChunkError,
		Err:        cause,
		RetryID:    retryID,
		Attempt:    attempt,
		IsRetrying: isRetrying,
	}, events.EmitOptions{Silent: silent})

	if !g.bus.DefaultRetryEnabled() {
		// The host owns recovery; announcing the error is all we do.
		return
	}

	retryID, attempt = g.maybeResetCycle(ctx, retryID, attempt, silent)

	g.mu.Lock()
	g.currentAttempt = attempt
	g.mu.Unlock()

	if attempt == domain.AttemptFallbackShown {
		if !silent {
			g.log.Info("fallback already shown, re-rendering", "retry_id", retryID)
		}
		g.ShowFallbackUI(ctx)
		return
	}

	if attempt >= len(delays) {
		g.bus.Emit(domain.Event{
			Type:    domain.EventRetryExhausted,
			Err:     cause,
			RetryID: retryID,
			Attempt: attempt,
		}, events.EmitOptions{Silent: silent})

		g.beacon.Send(ctx, report.Payload{
			Error:        errString(cause),
			FinalAttempt: attempt,
			RetryID:      retryID,
		})

		g.ShowFallbackUI(ctx)
		return
	}

	nextAttempt := attempt + 1
	delay := delayFor(delays, attempt)

	g.bus.Emit(domain.Event{
		Type:    domain.EventRetryAttempt,
		RetryID: retryID,
		Attempt: nextAttempt,
		Delay:   delay,
	}, events.EmitOptions{Silent: silent})

	g.mu.Lock()
	g.reloadScheduled = true
	g.waiting = true
	g.mu.Unlock()

	g.after(delay, func() { g.fireReload(retryID, nextAttempt) })
}

// resolveState reads the persisted retry position, minting a fresh cycle id
// when none is carried.
func (g *Guard) resolveState() (retryID string, attempt int) {
	if g.cfg.UseRetryID {
		if s := g.codec.Read(); s != nil {
			return s.RetryID, s.Attempt
		}
		return state.GenerateID(), 0
	}
	return state.GenerateID(), g.codec.ReadAttempt()
}

// maybeResetCycle restarts a dormant cycle from zero when the previous
// attempt's delay has fully elapsed and resets are not rate-limited.
func (g *Guard) maybeResetCycle(
	ctx context.Context,
	retryID string,
	attempt int,
	silent bool,
) (string, int) {
	if !g.cfg.EnableRetryReset || attempt <= 0 {
		return retryID, attempt
	}

	lastReload := g.store.LastReload(ctx)
	lastReset := g.store.LastReset(ctx)
	now := g.now()

	cur := domain.RetryState{RetryID: retryID, Attempt: attempt}
	if !session.ShouldResetCycle(cur, lastReload, lastReset, g.cfg.ReloadDelays, g.cfg.MinTimeBetweenResets, now) {
		return retryID, attempt
	}

	elapsed := now.Sub(time.UnixMilli(lastReload.Timestamp))

	g.codec.Clear()
	g.store.ClearLastReload(ctx)
	g.store.RecordReset(ctx, domain.ResetRecord{
		PreviousRetryID: retryID,
		Timestamp:       now.UnixMilli(),
	})

	g.bus.Emit(domain.Event{
		Type:    domain.EventRetryReset,
		RetryID: retryID,
		Attempt: attempt,
		Elapsed: elapsed,
	}, events.EmitOptions{Silent: silent})

	// A retry id is never reused across a reset.
	return state.GenerateID(), 0
}

// fireReload runs when the deferred delay elapses: persist the reload record
// and navigate. Navigation destroys this process; the next page load starts a
// fresh guard.
func (g *Guard) fireReload(retryID string, nextAttempt int) {
	ctx := context.Background()

	if g.cfg.EnableRetryReset {
		g.store.RecordReload(ctx, domain.ReloadRecord{
			Attempt:   nextAttempt,
			RetryID:   retryID,
			Timestamp: g.now().UnixMilli(),
		})
	}

	if g.cfg.UseRetryID {
		u, err := g.codec.ReloadURL(retryID, nextAttempt)
		if err == nil {
			if err := g.page.Assign(u); err == nil {
				return
			}
			g.log.Warn("navigation failed, falling back to plain reload", "error", err)
		}
		if err := g.page.Reload(); err != nil {
			g.log.Error("reload failed", "error", err)
		}
		return
	}

	g.codec.WriteAttempt(nextAttempt)
	if err := g.page.Reload(); err != nil {
		g.log.Error("reload failed", "error", err)
	}
}

func delayFor(delays []time.Duration, attempt int) time.Duration {
	if attempt >= 0 && attempt < len(delays) {
		return delays[attempt]
	}
	return domain.DefaultReloadDelay
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
