// Package state round-trips retry state through the page address. The query
// string is the one store that survives a full reload, so it is treated as an
// external persistence format: validated defensively on every read, rewritten
// without disturbing unrelated parameters.
package state

import (
	"log/slog"
	"net/url"
	"strconv"

	"github.com/vietddude/staleguard/internal/core/domain"
	"github.com/vietddude/staleguard/internal/infra/page"
)

// Query parameter names carrying (retryId, retryAttempt). Bit-exact contract
// with anything else that rewrites the page address.
const (
	ParamRetryID      = "sg_retry_id"
	ParamRetryAttempt = "sg_retry_attempt"
)

// Codec reads and writes RetryState on a page's address. All operations are
// best-effort: an unreadable or unwritable address degrades to nil state and
// a log line, never a panic or an error for the caller.
type Codec struct {
	loc page.Location
	log *slog.Logger
}

// NewCodec creates a codec bound to a page location.
func NewCodec(loc page.Location, log *slog.Logger) *Codec {
	if log == nil {
		log = slog.Default()
	}
	return &Codec{loc: loc, log: log}
}

// Read parses the retry state from the current address. It returns a state
// only when both parameters are present and the attempt parses as an integer;
// anything else yields nil.
func (c *Codec) Read() *domain.RetryState {
	u, err := c.loc.Current()
	if err != nil {
		c.log.Debug("retry state unreadable", "error", err)
		return nil
	}

	q := u.Query()
	if !q.Has(ParamRetryID) || !q.Has(ParamRetryAttempt) {
		return nil
	}

	attempt, err := strconv.Atoi(q.Get(ParamRetryAttempt))
	if err != nil {
		c.log.Debug("retry attempt parameter malformed", "value", q.Get(ParamRetryAttempt))
		return nil
	}

	return &domain.RetryState{RetryID: q.Get(ParamRetryID), Attempt: attempt}
}

// ReadAttempt returns the bare attempt counter, for hosts running without
// URL-carried cycle identity. Missing or malformed parameter reads as zero.
func (c *Codec) ReadAttempt() int {
	if s := c.Read(); s != nil {
		return s.Attempt
	}
	u, err := c.loc.Current()
	if err != nil {
		return 0
	}
	attempt, err := strconv.Atoi(u.Query().Get(ParamRetryAttempt))
	if err != nil {
		return 0
	}
	return attempt
}

// Write replaces both parameters on the current address without navigating.
// Unrelated parameters are preserved. Failures are swallowed.
func (c *Codec) Write(retryID string, attempt int) {
	c.rewrite(func(q url.Values) {
		q.Set(ParamRetryID, retryID)
		q.Set(ParamRetryAttempt, strconv.Itoa(attempt))
	})
}

// WriteAttempt sets only the attempt parameter, for hosts running without
// URL-carried cycle identity.
func (c *Codec) WriteAttempt(attempt int) {
	c.rewrite(func(q url.Values) {
		q.Set(ParamRetryAttempt, strconv.Itoa(attempt))
	})
}

// Clear removes both parameters, preserving the rest of the query string.
func (c *Codec) Clear() {
	c.rewrite(func(q url.Values) {
		q.Del(ParamRetryID)
		q.Del(ParamRetryAttempt)
	})
}

func (c *Codec) rewrite(mutate func(url.Values)) {
	u, err := c.loc.Current()
	if err != nil {
		c.log.Debug("cannot rewrite retry state", "error", err)
		return
	}
	q := u.Query()
	mutate(q)
	u.RawQuery = q.Encode()
	if err := c.loc.Replace(u); err != nil {
		c.log.Debug("cannot rewrite retry state", "error", err)
	}
}

// ReloadURL builds the navigation target for the next attempt: the current
// address with both parameters set to (retryID, attempt).
func (c *Codec) ReloadURL(retryID string, attempt int) (*url.URL, error) {
	u, err := c.loc.Current()
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set(ParamRetryID, retryID)
	q.Set(ParamRetryAttempt, strconv.Itoa(attempt))
	u.RawQuery = q.Encode()
	return u, nil
}
