// Package memory provides the in-process session store backend. It is the
// automatic fallback when the durable backend is unavailable, and the default
// for hosts that never configure one.
package memory

import (
	"context"
	"sync"

	"github.com/vietddude/staleguard/internal/infra/store"
)

type Backend struct {
	mu   sync.RWMutex
	data map[string]string
}

func New() *Backend {
	return &Backend{data: make(map[string]string)}
}

func (b *Backend) Get(ctx context.Context, key string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.data[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (b *Backend) Set(ctx context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	return nil
}
