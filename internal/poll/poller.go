// Package poll watches the deployed application version. A version change
// means the assets the current page references may already be gone, so hosts
// typically react by clearing retry state or reloading proactively instead of
// waiting for the first failed chunk fetch.
package poll

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/staleguard/internal/core/domain"
	"github.com/vietddude/staleguard/internal/core/events"
)

// Config holds version polling settings.
type Config struct {
	URL      string        `yaml:"url"`
	Interval time.Duration `yaml:"interval"`
}

// Poller periodically fetches the version endpoint and announces changes.
type Poller struct {
	cfg      Config
	client   *http.Client
	bus      *events.Bus
	log      *slog.Logger
	onChange func(previous, current string)

	mu      sync.Mutex
	current string
}

// New creates a poller. onChange may be nil; changes are always announced on
// the bus as new-deploy-detected.
func New(cfg Config, bus *events.Bus, onChange func(previous, current string), log *slog.Logger) *Poller {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Poller{
		cfg:      cfg,
		client:   &http.Client{Timeout: 10 * time.Second},
		bus:      bus,
		log:      log,
		onChange: onChange,
	}
}

// Current returns the last observed version, empty before the first
// successful poll.
func (p *Poller) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Run polls until ctx is cancelled. The first fetch establishes the baseline;
// only later differences count as a new deploy.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	version, err := p.fetch(ctx)
	if err != nil {
		p.log.Warn("version poll failed", "url", p.cfg.URL, "error", err)
		return
	}
	if version == "" {
		return
	}

	p.mu.Lock()
	previous := p.current
	p.current = version
	p.mu.Unlock()

	if previous == "" || previous == version {
		return
	}

	if p.bus != nil {
		p.bus.Emit(domain.Event{
			Type:            domain.EventNewDeployDetected,
			PreviousVersion: previous,
			CurrentVersion:  version,
		})
	}
	if p.onChange != nil {
		p.onChange(previous, version)
	}
}

// fetch reads the version endpoint: either a JSON document with a "version"
// field or a bare string body.
func (p *Poller) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("version endpoint returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", err
	}

	var doc struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(body, &doc); err == nil && doc.Version != "" {
		return doc.Version, nil
	}
	return strings.TrimSpace(string(body)), nil
}
