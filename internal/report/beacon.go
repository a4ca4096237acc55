// Package report delivers best-effort exhaustion beacons. Sending is
// fire-and-forget: the guard must never block or fail because the reporting
// channel is down.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// Payload documents a retry exhaustion.
type Payload struct {
	Error        string `json:"error"`
	FinalAttempt int    `json:"finalAttempt"`
	RetryID      string `json:"retryId"`
	SessionID    string `json:"sessionId,omitempty"`
	Timestamp    int64  `json:"timestamp"` // epoch milliseconds
}

// Sender ships a payload somewhere. Send must not fail synchronously; any
// transport trouble is the sender's own problem.
type Sender interface {
	Send(ctx context.Context, p Payload)
}

// Nop discards every payload.
type Nop struct{}

func (Nop) Send(context.Context, Payload) {}

// Config holds HTTP beacon settings. SessionID, when set, is stamped onto
// payloads that do not carry one.
type Config struct {
	URL       string        `yaml:"url"`
	SessionID string        `yaml:"-"`
	Timeout   time.Duration `yaml:"timeout"`
}

// HTTPSender posts payloads as JSON. The network send runs in its own
// goroutine with fibonacci backoff; failures end in a log line, never in the
// caller.
type HTTPSender struct {
	url       string
	sessionID string
	client    *http.Client
	log       *slog.Logger
	timeout   time.Duration

	// notify, when set, is called after the background send finishes; tests
	// use it to wait without sleeping.
	notify func()
}

// NewHTTPSender creates a sender posting to cfg.URL.
func NewHTTPSender(cfg Config, log *slog.Logger) *HTTPSender {
	if log == nil {
		log = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSender{
		url:       cfg.URL,
		sessionID: cfg.SessionID,
		client:    &http.Client{Timeout: timeout},
		log:       log,
		timeout:   timeout,
	}
}

// Send delivers p in the background and returns immediately.
func (s *HTTPSender) Send(ctx context.Context, p Payload) {
	if p.Timestamp == 0 {
		p.Timestamp = time.Now().UnixMilli()
	}
	if p.SessionID == "" {
		p.SessionID = s.sessionID
	}

	body, err := json.Marshal(p)
	if err != nil {
		s.log.Warn("beacon payload marshal failed", "error", err)
		return
	}

	go func() {
		// The page may be navigating away; detach from the caller's context
		// but keep a bound on total delivery time.
		sendCtx, cancel := context.WithTimeout(context.Background(), 4*s.timeout)
		defer cancel()

		backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))
		err := retry.Do(sendCtx, backoff, func(ctx context.Context) error {
			return retry.RetryableError(s.post(ctx, body))
		})
		if err != nil {
			s.log.Warn("beacon delivery failed", "url", s.url, "error", err)
		}
		if s.notify != nil {
			s.notify()
		}
	}()
}

func (s *HTTPSender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("beacon endpoint returned %s", resp.Status)
	}
	return nil
}
