package session

import (
	"time"

	"github.com/vietddude/staleguard/internal/core/domain"
)

// DefaultPreviousDelay stands in for a reload record whose attempt index
// falls outside the configured delay schedule. Same constant the guard uses
// for a missing schedule entry.
const DefaultPreviousDelay = domain.DefaultReloadDelay

// ShouldResetCycle decides whether a dormant retry cycle should restart from
// zero. A reset is warranted only when the last recorded reload belongs to
// the same cycle, its delay has fully elapsed, and resets are not being
// rate-limited.
//
// A mismatched retryId means the record belongs to an unrelated cycle and
// must never trigger a reset, regardless of elapsed time.
func ShouldResetCycle(
	state domain.RetryState,
	lastReload *domain.ReloadRecord,
	lastReset *domain.ResetRecord,
	delays []time.Duration,
	minTimeBetweenResets time.Duration,
	now time.Time,
) bool {
	if state.Attempt == 0 {
		return false // nothing to reset
	}
	if lastReload == nil {
		return false
	}
	if lastReload.RetryID != state.RetryID {
		return false
	}

	previousDelay := DefaultPreviousDelay
	if idx := lastReload.Attempt - 1; idx >= 0 && idx < len(delays) {
		previousDelay = delays[idx]
	}

	sinceReload := now.Sub(time.UnixMilli(lastReload.Timestamp))
	if sinceReload <= previousDelay {
		return false
	}

	if lastReset != nil {
		sinceReset := now.Sub(time.UnixMilli(lastReset.Timestamp))
		if sinceReset <= minTimeBetweenResets {
			return false
		}
	}

	return true
}
