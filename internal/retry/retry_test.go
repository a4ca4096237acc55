package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/staleguard/internal/core/domain"
	"github.com/vietddude/staleguard/internal/core/events"
)

var errLoad = errors.New("Failed to fetch dynamically imported module: /assets/Page-1a2b.js")

type recordingGuard struct {
	mu     sync.Mutex
	causes []error
}

func (g *recordingGuard) AttemptReload(ctx context.Context, cause error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.causes = append(g.causes, cause)
}

func TestDoAlwaysFailing(t *testing.T) {
	delays := []time.Duration{time.Millisecond, 2 * time.Millisecond}

	var calls int
	var retries [][2]any
	_, err := Do(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "", errLoad
	}, Config{
		Delays: delays,
		OnRetry: func(attempt int, delay time.Duration) {
			retries = append(retries, [2]any{attempt, delay})
		},
	})

	if calls != 3 {
		t.Errorf("load called %d times, want 3 (initial + 2 retries)", calls)
	}
	if !errors.Is(err, errLoad) {
		t.Errorf("final error = %v, want the last underlying error", err)
	}

	want := [][2]any{{1, delays[0]}, {2, delays[1]}}
	if len(retries) != len(want) {
		t.Fatalf("OnRetry called %d times, want %d", len(retries), len(want))
	}
	for i := range want {
		if retries[i] != want[i] {
			t.Errorf("OnRetry[%d] = %v, want %v", i, retries[i], want[i])
		}
	}
}

func TestDoSucceedsAfterRetry(t *testing.T) {
	bus := events.NewBus(nil)
	var recorded []domain.Event
	bus.Subscribe(func(ev domain.Event) { recorded = append(recorded, ev) })

	var calls int
	got, err := Do(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errLoad
		}
		return "module", nil
	}, Config{Delays: []time.Duration{time.Millisecond}, Bus: bus})

	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if got != "module" {
		t.Errorf("Do = %q, want module", got)
	}

	var types []domain.EventType
	for _, ev := range recorded {
		types = append(types, ev.Type)
	}
	if len(types) != 2 || types[0] != domain.EventLazyRetryAttempt || types[1] != domain.EventLazyRetrySuccess {
		t.Fatalf("events = %v, want [lazy-retry-attempt lazy-retry-success]", types)
	}
	if recorded[1].Attempt != 1 {
		t.Errorf("success attempt = %d, want 1", recorded[1].Attempt)
	}
}

func TestDoFirstTrySuccessEmitsNothing(t *testing.T) {
	bus := events.NewBus(nil)
	var recorded int
	bus.Subscribe(func(ev domain.Event) { recorded++ })

	got, err := Do(context.Background(), func(ctx context.Context) (int, error) {
		return 7, nil
	}, Config{Delays: DefaultDelays, Bus: bus})

	if err != nil || got != 7 {
		t.Fatalf("Do = (%d, %v), want (7, nil)", got, err)
	}
	if recorded != 0 {
		t.Errorf("emitted %d events on clean success, want 0", recorded)
	}
}

func TestDoExhaustionHandsOffChunkError(t *testing.T) {
	bus := events.NewBus(nil)
	var recorded []domain.Event
	bus.Subscribe(func(ev domain.Event) { recorded = append(recorded, ev) })

	g := &recordingGuard{}
	_, err := Do(context.Background(), func(ctx context.Context) (string, error) {
		return "", errLoad
	}, Config{
		Delays:          []time.Duration{time.Millisecond},
		ReloadOnFailure: true,
		Guard:           g,
		Bus:             bus,
	})

	if !errors.Is(err, errLoad) {
		t.Errorf("final error = %v, want last underlying error", err)
	}
	if len(g.causes) != 1 || !errors.Is(g.causes[0], errLoad) {
		t.Errorf("guard handoff = %v, want one call with the last error", g.causes)
	}

	last := recorded[len(recorded)-1]
	if last.Type != domain.EventLazyRetryExhaust || !last.WillReload {
		t.Errorf("final event = %+v, want lazy-retry-exhausted with willReload", last)
	}
}

func TestDoExhaustionNoHandoffForNonChunkError(t *testing.T) {
	plainErr := errors.New("backend returned 500")
	g := &recordingGuard{}
	bus := events.NewBus(nil)
	var last domain.Event
	bus.Subscribe(func(ev domain.Event) { last = ev })

	_, err := Do(context.Background(), func(ctx context.Context) (string, error) {
		return "", plainErr
	}, Config{
		Delays:          []time.Duration{time.Millisecond},
		ReloadOnFailure: true,
		Guard:           g,
		Bus:             bus,
	})

	if !errors.Is(err, plainErr) {
		t.Errorf("final error = %v", err)
	}
	if len(g.causes) != 0 {
		t.Error("non-chunk error must not hand off to the guard")
	}
	if last.WillReload {
		t.Error("willReload must be false for a non-chunk error")
	}
}

func TestDoAbortBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int
	_, err := Do(ctx, func(ctx context.Context) (string, error) {
		calls++
		return "", errLoad
	}, Config{Delays: DefaultDelays})

	if calls != 0 {
		t.Errorf("load called %d times on pre-cancelled context, want 0", calls)
	}
	var abort *AbortError
	if !errors.As(err, &abort) {
		t.Errorf("error = %v, want AbortError", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want to unwrap to context.Canceled", err)
	}
}

func TestDoAbortMidWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls int
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, func(ctx context.Context) (string, error) {
			calls++
			return "", errLoad
		}, Config{Delays: []time.Duration{time.Hour}})
		done <- err
	}()

	// Let the first attempt fail and the wait begin, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		var abort *AbortError
		if !errors.As(err, &abort) {
			t.Errorf("error = %v, want AbortError", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}

	if calls != 1 {
		t.Errorf("load called %d times, want 1 (no retry after abort)", calls)
	}
}

func TestDoPanickingOnRetryIsIsolated(t *testing.T) {
	var calls int
	got, err := Do(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errLoad
		}
		return "ok", nil
	}, Config{
		Delays:  []time.Duration{time.Millisecond},
		OnRetry: func(int, time.Duration) { panic("host callback bug") },
	})

	if err != nil || got != "ok" {
		t.Errorf("Do = (%q, %v), want (ok, nil)", got, err)
	}
}
