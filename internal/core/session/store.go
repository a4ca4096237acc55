// Package session owns the reload dedup records: the last scheduled reload
// and the last cycle reset. Records live in a session-scoped backend and the
// store transparently degrades to process memory on the first backend
// failure, so the guard keeps working with reduced cycle-reset accuracy even
// when persistence is fully disabled.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/vietddude/staleguard/internal/core/domain"
	"github.com/vietddude/staleguard/internal/infra/store"
	"github.com/vietddude/staleguard/internal/infra/store/memory"
)

// Fixed record keys. Contract with anything else reading the session store.
const (
	KeyLastReload = "staleguard.last_reload"
	KeyLastReset  = "staleguard.last_reset"
)

// Store persists ReloadRecord and ResetRecord.
type Store struct {
	mu       sync.Mutex
	backend  store.Backend
	fallback *memory.Backend
	degraded bool
	log      *slog.Logger
}

// NewStore creates a session store over the given backend. A nil backend
// starts directly on process memory.
func NewStore(backend store.Backend, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	s := &Store{backend: backend, fallback: memory.New(), log: log}
	if backend == nil {
		s.backend = s.fallback
		s.degraded = true
	}
	return s
}

// Degraded reports whether the store has fallen back to process memory.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// degrade swaps in the memory backend permanently after a backend failure.
func (s *Store) degrade(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.degraded {
		return
	}
	s.log.Warn("session store degraded to process memory", "op", op, "error", err)
	s.backend = s.fallback
	s.degraded = true
}

func (s *Store) current() store.Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend
}

func (s *Store) setJSON(ctx context.Context, op, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Warn("session record marshal failed", "op", op, "error", err)
		return
	}
	if err := s.current().Set(ctx, key, string(data)); err != nil {
		s.degrade(op, err)
		// Best effort on the fallback; memory backend never fails.
		_ = s.current().Set(ctx, key, string(data))
	}
}

// getJSON returns false for absent records and for malformed JSON; a stored
// record the store cannot parse is treated as absence, never as an error.
func (s *Store) getJSON(ctx context.Context, op, key string, v any) bool {
	raw, err := s.current().Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return false
	}
	if err != nil {
		s.degrade(op, err)
		raw, err = s.current().Get(ctx, key)
		if err != nil {
			return false
		}
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.log.Debug("session record malformed, treating as absent", "key", key)
		return false
	}
	return true
}

func (s *Store) delete(ctx context.Context, op, key string) {
	if err := s.current().Delete(ctx, key); err != nil {
		s.degrade(op, err)
		_ = s.current().Delete(ctx, key)
	}
}

// RecordReload overwrites the last-reload record. Called immediately before
// a deferred reload fires.
func (s *Store) RecordReload(ctx context.Context, rec domain.ReloadRecord) {
	s.setJSON(ctx, "record_reload", KeyLastReload, rec)
}

// LastReload returns the last-reload record, or nil when absent.
func (s *Store) LastReload(ctx context.Context) *domain.ReloadRecord {
	var rec domain.ReloadRecord
	if !s.getJSON(ctx, "last_reload", KeyLastReload, &rec) {
		return nil
	}
	return &rec
}

// ClearLastReload removes the last-reload record.
func (s *Store) ClearLastReload(ctx context.Context) {
	s.delete(ctx, "clear_last_reload", KeyLastReload)
}

// RecordReset overwrites the last-reset record.
func (s *Store) RecordReset(ctx context.Context, rec domain.ResetRecord) {
	s.setJSON(ctx, "record_reset", KeyLastReset, rec)
}

// LastReset returns the last-reset record, or nil when absent.
func (s *Store) LastReset(ctx context.Context) *domain.ResetRecord {
	var rec domain.ResetRecord
	if !s.getJSON(ctx, "last_reset", KeyLastReset, &rec) {
		return nil
	}
	return &rec
}

// ClearLastReset removes the last-reset record.
func (s *Store) ClearLastReset(ctx context.Context) {
	s.delete(ctx, "clear_last_reset", KeyLastReset)
}
