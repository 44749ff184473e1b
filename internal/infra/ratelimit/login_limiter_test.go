package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passport/config"
	domainerrors "passport/internal/domain/errors"
)

func newTestLimiter(t *testing.T, maxAttempts int, window time.Duration) (*miniredis.Miniredis, *redisLoginLimiter) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{Auth: &config.AuthConfig{
		LoginMaxAttempts:   maxAttempts,
		LoginAttemptWindow: window,
	}}

	limiter, ok := NewLoginLimiter(client, cfg).(*redisLoginLimiter)
	require.True(t, ok)

	return srv, limiter
}

func TestLoginLimiter_AllowsWithinBudget(t *testing.T) {
	_, limiter := newTestLimiter(t, 3, time.Minute)
	ctx := context.Background()

	assert.NoError(t, limiter.Check(ctx, "user@example.com"))

	require.NoError(t, limiter.RecordFailure(ctx, "user@example.com"))
	require.NoError(t, limiter.RecordFailure(ctx, "user@example.com"))
	assert.NoError(t, limiter.Check(ctx, "user@example.com"))
}

func TestLoginLimiter_ThrottlesAfterMaxAttempts(t *testing.T) {
	_, limiter := newTestLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for range 3 {
		require.NoError(t, limiter.RecordFailure(ctx, "user@example.com"))
	}

	err := limiter.Check(ctx, "user@example.com")
	assert.True(t, errors.Is(err, domainerrors.ErrLoginThrottled))

	// Other identifiers are unaffected
	assert.NoError(t, limiter.Check(ctx, "other@example.com"))
}

func TestLoginLimiter_ResetClearsCounter(t *testing.T) {
	_, limiter := newTestLimiter(t, 2, time.Minute)
	ctx := context.Background()

	require.NoError(t, limiter.RecordFailure(ctx, "user@example.com"))
	require.NoError(t, limiter.RecordFailure(ctx, "user@example.com"))
	require.Error(t, limiter.Check(ctx, "user@example.com"))

	require.NoError(t, limiter.Reset(ctx, "user@example.com"))
	assert.NoError(t, limiter.Check(ctx, "user@example.com"))
}

func TestLoginLimiter_WindowExpiry(t *testing.T) {
	srv, limiter := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, limiter.RecordFailure(ctx, "user@example.com"))
	require.Error(t, limiter.Check(ctx, "user@example.com"))

	srv.FastForward(2 * time.Minute)
	assert.NoError(t, limiter.Check(ctx, "user@example.com"))
}

func TestLoginLimiter_Defaults(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter, ok := NewLoginLimiter(client, &config.Config{}).(*redisLoginLimiter)
	require.True(t, ok)
	assert.Equal(t, defaultMaxAttempts, limiter.maxAttempts)
	assert.Equal(t, defaultAttemptWindow, limiter.window)
}
