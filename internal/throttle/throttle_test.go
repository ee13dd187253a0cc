package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carenest-server/internal/config"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLimiter(client, limit, window, zap.NewNop()), mr
}

func TestRedisLimiterWindow(t *testing.T) {
	limiter, mr := newTestLimiter(t, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "otp:alice@x.com")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := limiter.Allow(ctx, "otp:alice@x.com")
	require.NoError(t, err)
	assert.False(t, ok)

	// Other keys are counted separately.
	ok, err = limiter.Allow(ctx, "otp:bob@x.com")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(time.Minute + time.Second)

	ok, err = limiter.Allow(ctx, "otp:alice@x.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiterFailsOpen(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, time.Minute)
	mr.Close()

	ok, err := limiter.Allow(context.Background(), "otp:alice@x.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewWithoutURLAllowsAll(t *testing.T) {
	limiter, err := New(config.RedisConfig{}, zap.NewNop())
	require.NoError(t, err)

	ok, err := limiter.Allow(context.Background(), "anything")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(config.RedisConfig{URL: "://bad"}, zap.NewNop())
	assert.Error(t, err)
}

func TestRedisLimiterSetsWindowOnFirstHit(t *testing.T) {
	limiter, mr := newTestLimiter(t, 5, time.Minute)
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "reset:alice@x.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("carenest:throttle:reset:alice@x.com"))

	// Later hits keep the original window instead of extending it.
	mr.FastForward(30 * time.Second)
	_, err = limiter.Allow(ctx, "reset:alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, mr.TTL("carenest:throttle:reset:alice@x.com"))

	got, err := mr.Get("carenest:throttle:reset:alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
}

func TestCloseReleasesClient(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)
	require.NoError(t, limiter.Close())

	// A closed client behaves like an outage and the limiter fails open.
	ok, err := limiter.Allow(context.Background(), "otp:alice@x.com")
	require.NoError(t, err)
	assert.True(t, ok)

	var l Limiter = AllowAll{}
	assert.NoError(t, l.Close())
}

func TestNewWithURLReturnsClosableRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := New(config.RedisConfig{URL: "redis://" + mr.Addr(), ThrottleLimit: 1, ThrottleWindowSeconds: 60}, zap.NewNop())
	require.NoError(t, err)
	_, ok := limiter.(*RedisLimiter)
	assert.True(t, ok)
	assert.NoError(t, limiter.Close())
}
