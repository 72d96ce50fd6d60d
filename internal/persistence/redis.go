package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
)

const defaultRedisTimeout = 2 * time.Second

// ErrRedisUnavailable means the settings store cannot be reached. Settings reads fall back
// to the configured defaults while it is down.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Redis holds the client backing the assistant settings store.
type Redis struct {
	Client      *redis.Client
	SettingsKey string
}

// NewRedis builds the client and checks connectivity once. An unreachable server is logged
// and tolerated.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := defaultRedisTimeout
	if cfg.TimeoutMs > 0 {
		timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		MaxRetries:   1,
	})
	r := &Redis{Client: client, SettingsKey: cfg.SettingsKey}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	fields := []zap.Field{zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB), zap.String("settings_key", cfg.SettingsKey)}
	if err := r.Ping(pingCtx); err != nil {
		logger.Warn("settings store unreachable; using default assistant settings", append(fields, zap.Error(err))...)
	} else {
		logger.Info("connected to settings store", fields...)
	}
	return r
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies connectivity. Failures wrap ErrRedisUnavailable.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return fmt.Errorf("%w: client not configured", ErrRedisUnavailable)
	}
	if err := r.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
