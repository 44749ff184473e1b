// Package ratelimit enforces login attempt budgets using Redis counters.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"passport/config"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/lifecycle"
	"passport/internal/domain/service"
	"passport/internal/errors"
)

const (
	loginAttemptKeyPrefix = "login:attempts:"

	defaultMaxAttempts   = 5
	defaultAttemptWindow = 15 * time.Minute
)

// RedisParams defines the parameters required for the Redis client.
type RedisParams struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// NewRedisClient creates a Redis client managed by the fx lifecycle.
func NewRedisClient(params RedisParams) (*redis.Client, error) {
	if params.Config.Redis == nil {
		return nil, errors.New("redis configuration is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     params.Config.Redis.Addr,
		Password: params.Config.Redis.Password,
		DB:       params.Config.Redis.DB,
	})

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			if err := client.Ping(ctx).Err(); err != nil {
				return errors.Wrap(err, "failed to ping Redis")
			}

			return nil
		},
		OnStop: func(_ context.Context) error {
			return client.Close()
		},
	})

	return client, nil
}

// redisLoginLimiter implements the LoginLimiter interface with per-identifier
// failure counters that expire after the attempt window.
type redisLoginLimiter struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
}

// NewLoginLimiter creates a Redis-backed login limiter.
func NewLoginLimiter(client *redis.Client, cfg *config.Config) service.LoginLimiter {
	limiter := &redisLoginLimiter{
		client:      client,
		maxAttempts: defaultMaxAttempts,
		window:      defaultAttemptWindow,
	}

	if cfg.Auth != nil {
		if cfg.Auth.LoginMaxAttempts > 0 {
			limiter.maxAttempts = cfg.Auth.LoginMaxAttempts
		}
		if cfg.Auth.LoginAttemptWindow > 0 {
			limiter.window = cfg.Auth.LoginAttemptWindow
		}
	}

	return limiter
}

// Check returns ErrLoginThrottled when the identifier has exhausted its attempt budget.
func (l *redisLoginLimiter) Check(ctx context.Context, identifier string) error {
	count, err := l.client.Get(ctx, loginAttemptKeyPrefix+identifier).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return errors.Wrap(err, "failed to read login attempt counter")
	}

	if count >= int64(l.maxAttempts) {
		return domainerrors.ErrLoginThrottled
	}

	return nil
}

// RecordFailure increments the failure counter, starting the expiry window on the first failure.
func (l *redisLoginLimiter) RecordFailure(ctx context.Context, identifier string) error {
	key := loginAttemptKeyPrefix + identifier

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return errors.Wrap(err, "failed to increment login attempt counter")
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return errors.Wrap(err, "failed to set login attempt counter expiry")
		}
	}

	return nil
}

// Reset clears the failure counter after a successful login.
func (l *redisLoginLimiter) Reset(ctx context.Context, identifier string) error {
	if err := l.client.Del(ctx, loginAttemptKeyPrefix+identifier).Err(); err != nil {
		return errors.Wrap(err, "failed to reset login attempt counter")
	}

	return nil
}
