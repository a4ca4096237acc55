package poll

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/vietddude/staleguard/internal/core/domain"
	"github.com/vietddude/staleguard/internal/core/events"
)

type versionServer struct {
	mu      sync.Mutex
	version string
	json    bool
}

func (s *versionServer) set(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = v
}

func (s *versionServer) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.json {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"version":"` + s.version + `"}`))
		return
	}
	w.Write([]byte(s.version + "\n"))
}

func TestPollerDetectsChange(t *testing.T) {
	vs := &versionServer{version: "2024.8.1", json: true}
	srv := httptest.NewServer(http.HandlerFunc(vs.handler))
	defer srv.Close()

	bus := events.NewBus(nil)
	var mu sync.Mutex
	var busEvents []domain.Event
	bus.Subscribe(func(ev domain.Event) {
		mu.Lock()
		defer mu.Unlock()
		busEvents = append(busEvents, ev)
	})

	var changes [][2]string
	p := New(Config{URL: srv.URL}, bus, func(prev, cur string) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, [2]string{prev, cur})
	}, nil)

	ctx := context.Background()

	// Baseline poll: establishes the version, no event.
	p.poll(ctx)
	if got := p.Current(); got != "2024.8.1" {
		t.Fatalf("Current = %q, want 2024.8.1", got)
	}

	// Unchanged poll: still no event.
	p.poll(ctx)

	// New deploy ships.
	vs.set("2024.8.2")
	p.poll(ctx)

	// Same version again: exactly one change total.
	p.poll(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(busEvents) != 1 {
		t.Fatalf("emitted %d events, want 1", len(busEvents))
	}
	ev := busEvents[0]
	if ev.Type != domain.EventNewDeployDetected ||
		ev.PreviousVersion != "2024.8.1" || ev.CurrentVersion != "2024.8.2" {
		t.Errorf("event = %+v", ev)
	}
	if len(changes) != 1 || changes[0] != [2]string{"2024.8.1", "2024.8.2"} {
		t.Errorf("onChange calls = %v", changes)
	}
}

func TestPollerPlainTextBody(t *testing.T) {
	vs := &versionServer{version: "build-7731"}
	srv := httptest.NewServer(http.HandlerFunc(vs.handler))
	defer srv.Close()

	p := New(Config{URL: srv.URL}, nil, nil, nil)
	p.poll(context.Background())

	if got := p.Current(); got != "build-7731" {
		t.Errorf("Current = %q, want build-7731", got)
	}
}

func TestPollerFetchFailureKeepsVersion(t *testing.T) {
	vs := &versionServer{version: "v1", json: true}
	srv := httptest.NewServer(http.HandlerFunc(vs.handler))

	p := New(Config{URL: srv.URL}, nil, nil, nil)
	p.poll(context.Background())
	srv.Close()

	p.poll(context.Background())
	if got := p.Current(); got != "v1" {
		t.Errorf("Current after failed poll = %q, want v1", got)
	}
}
