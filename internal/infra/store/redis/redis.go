// Package redis provides the durable session store backend. Keys are
// prefixed with the session identifier and carry a TTL, so records stay
// scoped to one session and expire with it instead of outliving the host.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/staleguard/internal/infra/store"
)

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// Backend stores session records in Redis.
type Backend struct {
	rdb       *redis.Client
	sessionID string
	ttl       time.Duration
}

// New creates a Redis backend scoped to sessionID. Records expire after ttl.
func New(cfg Config, sessionID string, ttl time.Duration) (*Backend, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Backend{rdb: rdb, sessionID: sessionID, ttl: ttl}, nil
}

// Close closes the Redis connection.
func (b *Backend) Close() error {
	return b.rdb.Close()
}

func (b *Backend) key(key string) string {
	return fmt.Sprintf("staleguard:sess:%s:%s", b.sessionID, key)
}

func (b *Backend) Get(ctx context.Context, key string) (string, error) {
	val, err := b.rdb.Get(ctx, b.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return val, nil
}

func (b *Backend) Set(ctx context.Context, key, value string) error {
	if err := b.rdb.Set(ctx, b.key(key), value, b.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.rdb.Del(ctx, b.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}
