package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/vietddude/staleguard/internal/core/domain"
	"github.com/vietddude/staleguard/internal/core/events"
	"github.com/vietddude/staleguard/internal/core/guard"
	"github.com/vietddude/staleguard/internal/core/session"
	"github.com/vietddude/staleguard/internal/infra/page"
	memorystore "github.com/vietddude/staleguard/internal/infra/store/memory"
	"github.com/vietddude/staleguard/internal/retry"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found")
	}

	ctx := context.Background()

	// 1. Simulated page and session store
	pg, err := page.NewMemory("https://app.example.com/dashboard?tab=orders")
	if err != nil {
		log.Fatalf("page: %v", err)
	}
	store := session.NewStore(memorystore.New(), nil)

	// 2. Event bus with a printing subscriber
	bus := events.NewBus(nil)
	bus.Subscribe(func(ev domain.Event) {
		fmt.Printf("📣 %s attempt=%d retry_id=%s\n", ev.Type, ev.Attempt, ev.RetryID)
	})

	// 3. Guard with a short schedule
	g := guard.New(guard.Config{
		ReloadDelays: []time.Duration{100 * time.Millisecond, 200 * time.Millisecond},
		UseRetryID:   true,
		FallbackHTML: `<div data-staleguard-retry-id></div><p>Something went wrong. Please refresh.</p>`,
	}, pg, store, bus, nil, nil)

	fmt.Println("=== Simulating chunk load failures ===")

	// 4. Drive a full retry cycle: each chunk error schedules the next reload
	chunkErr := errors.New("Failed to fetch dynamically imported module: https://app.example.com/assets/chunk-7f3a.js")
	for i := 0; i < 4; i++ {
		g.AttemptReload(ctx, chunkErr)
		time.Sleep(300 * time.Millisecond)
		fmt.Printf("   page url: %s (navigations: %d)\n", mustURL(pg), pg.NavigationCount())
		// A real navigation destroys the page process; Reset stands in for
		// the restart.
		g.Reset()
	}

	snap := g.Snapshot()
	fmt.Printf("\nfinal state: attempt=%d waiting=%v fallback=%v\n",
		snap.CurrentAttempt, snap.IsWaiting, snap.IsFallbackShown)

	// 5. Lazy import retry against a flaky loader
	fmt.Println("\n=== Simulating lazy import retry ===")
	calls := 0
	mod, err := retry.Do(ctx, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("Loading chunk 42 failed")
		}
		return "orders-module", nil
	}, retry.Config{
		Delays: []time.Duration{50 * time.Millisecond, 100 * time.Millisecond},
		Bus:    bus,
		OnRetry: func(attempt int, delay time.Duration) {
			fmt.Printf("   retrying import (attempt %d, after %v)\n", attempt, delay)
		},
	})
	if err != nil {
		log.Fatalf("lazy import failed: %v", err)
	}
	fmt.Printf("loaded %q after %d calls\n", mod, calls)
}

func mustURL(pg *page.Memory) string {
	u, err := pg.Current()
	if err != nil {
		return "<broken>"
	}
	return u.String()
}
