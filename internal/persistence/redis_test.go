package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
)

func TestRedisPing(t *testing.T) {
	t.Run("nil client", func(t *testing.T) {
		var r *Redis
		assert.ErrorIs(t, r.Ping(context.Background()), ErrRedisUnavailable)
		assert.NotPanics(t, r.Close)
	})

	t.Run("unreachable server is tolerated", func(t *testing.T) {
		r := NewRedis(context.Background(), config.RedisConfig{
			Addr:        "127.0.0.1:1",
			SettingsKey: "assistant:settings",
			TimeoutMs:   200,
		}, zap.NewNop())
		defer r.Close()
		require.NotNil(t, r.Client)
		assert.Equal(t, "assistant:settings", r.SettingsKey)
		assert.ErrorIs(t, r.Ping(context.Background()), ErrRedisUnavailable)
	})
}
