// Package store defines the session-scoped key/value backend the reload
// dedup records live in. Backends are deliberately tiny: string keys, string
// values, nothing shared across sessions.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no record.
var ErrNotFound = errors.New("session record not found")

// Backend persists session-scoped records. Implementations must be safe for
// concurrent use.
type Backend interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores the value for key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
