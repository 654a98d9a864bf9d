package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/bidgrid/assistant"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a recommendation stays cached.
const DefaultTTL = 24 * time.Hour

// Recommendations caches AI recommendations by key.
// Implementations must be thread-safe for concurrent use.
type Recommendations interface {
	// Get returns the cached recommendation and whether it was found.
	Get(ctx context.Context, key string) (*assistant.Recommendation, bool, error)

	// Set stores rec under key.
	Set(ctx context.Context, key string, rec *assistant.Recommendation) error

	// Close releases the underlying connection.
	Close() error
}

// Noop is a Recommendations that never stores anything.
type Noop struct{}

var _ Recommendations = Noop{}

func (Noop) Get(context.Context, string) (*assistant.Recommendation, bool, error) {
	return nil, false, nil
}

func (Noop) Set(context.Context, string, *assistant.Recommendation) error { return nil }

func (Noop) Close() error { return nil }

// Redis implements Recommendations on a Redis server. Values are JSON.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ Recommendations = (*Redis)(nil)

// NewRedis connects to the server described by opts and verifies it answers.
// A ttl of zero or less selects DefaultTTL.
func NewRedis(ctx context.Context, opts *redis.Options, ttl time.Duration) (*Redis, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis not accessible at %s: %w", opts.Addr, err)
	}
	return &Redis{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "cache"),
	}, nil
}

// NewRedisURL parses a redis:// URL and connects.
func NewRedisURL(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewRedis(ctx, opts, ttl)
}

// Get reads key. A missing or expired key is a miss, not an error.
func (r *Redis) Get(ctx context.Context, key string) (*assistant.Recommendation, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rec assistant.Recommendation
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("decode cached recommendation %s: %w", key, err)
	}
	r.logger.Debug("cache hit", "key", key)
	return &rec, true, nil
}

// Set writes rec under key with the configured TTL.
func (r *Redis) Set(ctx context.Context, key string, rec *assistant.Recommendation) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
