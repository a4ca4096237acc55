package domain

import "time"

// Event is a lifecycle event published on the bus.
type Event struct {
	Type    EventType
	Err     error
	RetryID string

	// Attempt carries the attempt number relevant to the event: the scheduled
	// attempt for retry-attempt, the final attempt for retry-exhausted, the
	// previous attempt for retry-reset.
	Attempt int

	Delay   time.Duration
	Elapsed time.Duration

	// IsRetrying is set on chunk-error events: whether the default retry
	// behavior will schedule a reload for this error.
	IsRetrying bool

	// TotalAttempts and WillReload are set on lazy-retry events.
	TotalAttempts int
	WillReload    bool

	// Version fields are set on new-deploy-detected events.
	PreviousVersion string
	CurrentVersion  string
}

type EventType string

const (
	EventChunkError        EventType = "chunk-error"
	EventRetryAttempt      EventType = "retry-attempt"
	EventRetryReset        EventType = "retry-reset"
	EventRetryExhausted    EventType = "retry-exhausted"
	EventFallbackShown     EventType = "fallback-ui-shown"
	EventLazyRetryAttempt  EventType = "lazy-retry-attempt"
	EventLazyRetrySuccess  EventType = "lazy-retry-success"
	EventLazyRetryExhaust  EventType = "lazy-retry-exhausted"
	EventNewDeployDetected EventType = "new-deploy-detected"
)
