package guard

import (
	"context"

	"github.com/vietddude/staleguard/internal/core/domain"
	"github.com/vietddude/staleguard/internal/infra/page"
)

// ShowFallbackUI injects the configured recovery markup into the fallback
// target and marks the URL state terminal, so the next page load knows the
// fallback was already shown. Re-rendering an already-terminal state clears
// the URL instead, letting a manual retry by the user start clean.
//
// Every failure mode here is a log line, never an error for the caller: a
// broken fallback must not take down the recovery path it exists for.
func (g *Guard) ShowFallbackUI(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("fallback rendering panicked", "panic", r)
		}
	}()

	if g.cfg.FallbackHTML == "" {
		g.log.Info("no fallback markup configured, skipping fallback UI")
		return
	}

	selector := g.cfg.FallbackSelector
	if !g.page.Exists(selector) {
		g.log.Warn("fallback target not found", "selector", selector)
		return
	}

	if err := g.page.SetHTML(selector, g.cfg.FallbackHTML); err != nil {
		g.log.Warn("fallback injection failed", "selector", selector, "error", err)
		return
	}

	st := g.codec.Read()
	switch {
	case st == nil:
		// No URL-carried state to update (bare-counter mode or stripped
		// params); the injected markup is all there is.
	case st.Terminal():
		g.codec.Clear()
	default:
		g.codec.Write(st.RetryID, domain.AttemptFallbackShown)
		g.log.Info("retry state marked terminal", "retry_id", st.RetryID,
			"display_attempt", st.Attempt+1)
	}

	var retryID string
	if st != nil {
		retryID = st.RetryID
		populateRetryID(g.page, retryID)
	}

	g.mu.Lock()
	g.fallbackShown = true
	g.waiting = false
	g.mu.Unlock()

	g.bus.Emit(domain.Event{Type: domain.EventFallbackShown, RetryID: retryID})
}

// populateRetryID fills elements that display the retry identifier to the
// user, so support can correlate a screenshot with beacon reports.
func populateRetryID(doc page.Document, retryID string) {
	if !doc.Exists(RetryIDSelector) {
		return
	}
	_ = doc.SetText(RetryIDSelector, retryID)
}
