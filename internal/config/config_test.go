package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_AssistantFromEnv(t *testing.T) {
	t.Setenv("ASSISTANT_ENABLED", "false")
	t.Setenv("ASSISTANT_KB_THRESHOLD", "150")
	t.Setenv("ASSISTANT_AUTO_CLOSE_DAYS", "5")
	t.Setenv("ASSISTANT_REMINDER_DELAY_HOURS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Assistant.Enabled)
	assert.Equal(t, 100, cfg.Assistant.KBThreshold)
	assert.Equal(t, 5, cfg.Assistant.AutoCloseDays)
	assert.Equal(t, 48, cfg.Assistant.ReminderDelayHours)
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "x")
	_, err := Load()
	assert.Error(t, err)
}

func TestAssistantDurations(t *testing.T) {
	a := DefaultAssistantConfig()
	assert.Equal(t, 48*time.Hour, a.ReminderDelay())
	assert.Equal(t, 6*24*time.Hour, a.WarningAfter())
	assert.Equal(t, 7*24*time.Hour, a.AutoCloseAfter())
}

func TestNormalize(t *testing.T) {
	a := AssistantConfig{AutoCloseDays: 1, KBThreshold: -3, BusinessHoursStart: 30}.Normalize()
	assert.Equal(t, 2, a.AutoCloseDays)
	assert.Equal(t, 0, a.KBThreshold)
	assert.Equal(t, 8, a.BusinessHoursStart)
	assert.Equal(t, "Asistente Virtual", a.Name)
	assert.Equal(t, 8, a.MaxConcurrency)
}
