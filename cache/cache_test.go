package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/poiesic/bidgrid/assistant"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedis(context.Background(), &redis.Options{Addr: mr.Addr()}, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestRedis_SetGet(t *testing.T) {
	c, mr := newTestRedis(t, time.Hour)
	ctx := context.Background()

	_, found, err := c.Get(ctx, "recommendation:missing")
	require.NoError(t, err)
	assert.False(t, found)

	rec := &assistant.Recommendation{
		Summary: "Acme offers the best value",
		Recommendation: &assistant.Verdict{
			Winner: "Acme",
			Reason: "Lowest price with full warranty",
		},
	}
	require.NoError(t, c.Set(ctx, "recommendation:rfp:abc", rec))
	assert.True(t, mr.Exists("recommendation:rfp:abc"))
	assert.Equal(t, time.Hour, mr.TTL("recommendation:rfp:abc"))

	got, found, err := c.Get(ctx, "recommendation:rfp:abc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Acme offers the best value", got.Summary)
	require.NotNil(t, got.Recommendation)
	assert.Equal(t, "Acme", got.Recommendation.Winner)
}

func TestRedis_Expiry(t *testing.T) {
	c, mr := newTestRedis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", &assistant.Recommendation{Summary: "s"}))
	mr.FastForward(2 * time.Minute)

	_, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedis_DefaultTTL(t *testing.T) {
	c, mr := newTestRedis(t, 0)
	require.NoError(t, c.Set(context.Background(), "k", &assistant.Recommendation{}))
	assert.Equal(t, DefaultTTL, mr.TTL("k"))
}

func TestRedis_CorruptValue(t *testing.T) {
	c, mr := newTestRedis(t, time.Hour)
	require.NoError(t, mr.Set("k", "not json"))

	_, found, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, found)
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), &redis.Options{Addr: addr}, time.Minute)
	assert.Error(t, err)
}

func TestNewRedisURL(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedisURL(context.Background(), "redis://"+mr.Addr()+"/0", time.Minute)
	require.NoError(t, err)
	defer c.Close()

	_, err = NewRedisURL(context.Background(), "http://nope", time.Minute)
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	var c Recommendations = Noop{}
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", &assistant.Recommendation{Summary: "s"}))
	_, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.Close())
}
