// Package control wires the recovery components into a runnable agent.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/staleguard/internal/core/config"
	"github.com/vietddude/staleguard/internal/core/events"
	"github.com/vietddude/staleguard/internal/core/guard"
	"github.com/vietddude/staleguard/internal/core/session"
	"github.com/vietddude/staleguard/internal/core/state"
	"github.com/vietddude/staleguard/internal/health"
	"github.com/vietddude/staleguard/internal/infra/page"
	"github.com/vietddude/staleguard/internal/infra/store"
	memorystore "github.com/vietddude/staleguard/internal/infra/store/memory"
	redisstore "github.com/vietddude/staleguard/internal/infra/store/redis"
	"github.com/vietddude/staleguard/internal/metrics"
	"github.com/vietddude/staleguard/internal/poll"
	"github.com/vietddude/staleguard/internal/report"
	"github.com/vietddude/staleguard/internal/retry"
)

// Agent supervises one page: it owns the guard, the event bus, the session
// store and the optional version poller, and exposes them over the health
// server.
type Agent struct {
	cfg          *config.AppConfig
	sessionID    string
	guard        *guard.Guard
	bus          *events.Bus
	store        *session.Store
	page         page.Page
	poller       *poll.Poller
	lazy         retry.Config
	redisBackend *redisstore.Backend
	healthServer *health.Server
	unobserve    func()
	log          *slog.Logger
}

// NewAgent builds an agent from configuration. pg is the page bridge supplied
// by the host; a nil bridge gets an in-memory page at page.url, which is only
// useful for local runs.
func NewAgent(cfg *config.AppConfig, pg page.Page) (*Agent, error) {
	log := slog.Default()
	sessionID := state.GenerateID()

	if pg == nil {
		url := cfg.Page.URL
		if url == "" {
			url = "https://localhost/"
		}
		mem, err := page.NewMemory(url)
		if err != nil {
			return nil, fmt.Errorf("failed to init page: %w", err)
		}
		pg = mem
	}

	// 1. Session store: Redis when configured, process memory otherwise.
	var backend store.Backend
	var redisBackend *redisstore.Backend
	if cfg.Session.Redis.URL != "" {
		ttl := time.Duration(cfg.Session.TTLHours) * time.Hour
		rb, err := redisstore.New(cfg.Session.Redis, sessionID, ttl)
		if err != nil {
			log.Warn("Failed to connect to Redis, using memory store", "error", err)
			backend = memorystore.New()
		} else {
			backend = rb
			redisBackend = rb
			log.Info("Using Redis session store", "session_id", sessionID)
		}
	} else {
		backend = memorystore.New()
		log.Info("Using memory session store", "session_id", sessionID)
	}
	sessStore := session.NewStore(backend, log)

	// 2. Event bus and metrics sink.
	bus := events.NewBus(log)
	unobserve := metrics.Observe(bus)

	// 3. Exhaustion beacon.
	var beacon report.Sender = report.Nop{}
	if cfg.Beacon.URL != "" {
		beacon = report.NewHTTPSender(report.Config{
			URL:       cfg.Beacon.URL,
			SessionID: sessionID,
			Timeout:   time.Duration(cfg.Beacon.TimeoutMS) * time.Millisecond,
		}, log)
	}

	// 4. Guard.
	g := guard.New(guard.Config{
		ReloadDelays:         config.Durations(cfg.Retry.ReloadDelaysMS),
		UseRetryID:           config.BoolOr(cfg.Retry.UseRetryID, true),
		EnableRetryReset:     config.BoolOr(cfg.Retry.EnableRetryReset, true),
		MinTimeBetweenResets: time.Duration(cfg.Retry.MinTimeBetweenResetsMS) * time.Millisecond,
		FallbackHTML:         cfg.Fallback.HTML,
		FallbackSelector:     cfg.Fallback.Selector,
		IgnoreMessages:       cfg.Retry.IgnoreMessages,
	}, pg, sessStore, bus, beacon, log)

	// 5. Version poller. A new deploy means the current retry cycle is
	// against assets that no longer exist, so start over.
	var poller *poll.Poller
	if cfg.Poll.URL != "" {
		poller = poll.New(poll.Config{
			URL:      cfg.Poll.URL,
			Interval: time.Duration(cfg.Poll.IntervalMS) * time.Millisecond,
		}, bus, func(previous, current string) {
			g.Reset()
			log.Info("New deploy detected, retry cycle cleared",
				"previous", previous, "current", current)
		}, log)
	}

	// 6. Lazy-load retry template. Hosts pass it to retry.Do so individual
	// loads share the configured schedule and escalate to this guard.
	lazy := retry.Config{
		Delays:          config.Durations(cfg.Lazy.DelaysMS),
		ReloadOnFailure: cfg.Lazy.ReloadOnFailure,
		Guard:           g,
		Bus:             bus,
	}

	return &Agent{
		cfg:          cfg,
		sessionID:    sessionID,
		guard:        g,
		bus:          bus,
		store:        sessStore,
		page:         pg,
		poller:       poller,
		lazy:         lazy,
		redisBackend: redisBackend,
		healthServer: health.NewServer(g, cfg.Server.Port),
		unobserve:    unobserve,
		log:          log,
	}, nil
}

// Guard returns the agent's retry orchestrator.
func (a *Agent) Guard() *guard.Guard { return a.guard }

// Bus returns the agent's event bus.
func (a *Agent) Bus() *events.Bus { return a.bus }

// SessionID returns the identifier scoping this agent's session records.
func (a *Agent) SessionID() string { return a.sessionID }

// LazyRetry returns the configured lazy-load retry template, wired to this
// agent's guard and bus. Callers hand it to retry.Do, setting OnRetry per
// call site as needed.
func (a *Agent) LazyRetry() retry.Config { return a.lazy }

// Start starts the health server and the version poller.
func (a *Agent) Start(ctx context.Context) error {
	go func() {
		if err := a.healthServer.Start(); err != nil {
			a.log.Error("Health server failed", "error", err)
		}
	}()

	if a.poller != nil {
		go a.poller.Run(ctx)
	}

	return nil
}

// Stop stops the agent.
func (a *Agent) Stop(ctx context.Context) error {
	a.log.Info("Stopping agent...")

	a.unobserve()

	if a.redisBackend != nil {
		if err := a.redisBackend.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}

	return a.healthServer.Stop(ctx)
}
