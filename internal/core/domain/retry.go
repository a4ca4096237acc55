package domain

import "time"

// AttemptFallbackShown is the sentinel attempt value meaning the fallback UI
// has already been rendered and further retries are suppressed.
const AttemptFallbackShown = -1

// DefaultReloadDelay applies when an attempt index has no entry in the
// configured delay schedule.
const DefaultReloadDelay = 5 * time.Second

// RetryState is the retry position carried in the page address. It survives
// a full reload by construction and is destroyed only by stripping the query
// parameters.
type RetryState struct {
	RetryID string
	Attempt int
}

// Terminal reports whether the state carries the fallback-shown sentinel.
func (s RetryState) Terminal() bool {
	return s.Attempt == AttemptFallbackShown
}

// ReloadRecord remembers the last scheduled reload for a retry cycle. It is
// written immediately before the deferred navigation fires and read to decide
// whether a dormant cycle should restart from zero.
type ReloadRecord struct {
	Attempt   int    `json:"attemptNumber"`
	RetryID   string `json:"retryId"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// ResetRecord remembers the last cycle reset, used to rate-limit resets.
type ResetRecord struct {
	PreviousRetryID string `json:"previousRetryId"`
	Timestamp       int64  `json:"timestamp"` // epoch milliseconds
}
