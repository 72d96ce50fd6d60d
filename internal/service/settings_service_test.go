package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/triage-service/internal/config"
)

func intPtr(v int) *int { return &v }

func TestSettingsService_OverlayAndUpdate(t *testing.T) {
	store := newMemStore(nil)
	svc := NewSettingsService(fakeSettingsRepo{store}, config.DefaultAssistantConfig(), nil)
	ctx := context.Background()

	assert.Equal(t, config.DefaultAssistantConfig(), svc.Current(ctx))

	off := false
	name := "  Soporte Bot "
	cfg, err := svc.Update(ctx, SettingsPatch{Enabled: &off, Name: &name, KBThreshold: intPtr(65), AutoCloseDays: intPtr(3)})
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "Soporte Bot", cfg.Name)
	assert.Equal(t, 65, cfg.KBThreshold)
	assert.Equal(t, 3, cfg.AutoCloseDays)
	assert.Equal(t, 48, cfg.ReminderDelayHours)

	assert.Equal(t, cfg, svc.Current(ctx))
}

func TestSettingsService_RejectsInvalidPatch(t *testing.T) {
	svc := NewSettingsService(fakeSettingsRepo{newMemStore(nil)}, config.DefaultAssistantConfig(), nil)
	ctx := context.Background()

	cases := map[string]SettingsPatch{
		"empty":            {},
		"threshold":        {KBThreshold: intPtr(101)},
		"auto close":       {AutoCloseDays: intPtr(1)},
		"business hours":   {BusinessHoursStart: intPtr(24)},
		"negative delay":   {ResponseDelayMeanMs: intPtr(-1)},
		"relative kb link": {KBBaseURL: func() *string { s := "help/kb"; return &s }()},
	}
	for name, patch := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Update(ctx, patch)
			assert.Equal(t, "VALIDATION_FAILED", errorCode(t, err))
		})
	}
}

func TestSettingsService_Fallbacks(t *testing.T) {
	ctx := context.Background()

	t.Run("storage error uses defaults", func(t *testing.T) {
		store := newMemStore(nil)
		store.failSettings = true
		svc := NewSettingsService(fakeSettingsRepo{store}, config.DefaultAssistantConfig(), nil)
		assert.Equal(t, config.DefaultAssistantConfig(), svc.Current(ctx))
	})

	t.Run("malformed stored values are ignored and out of range ones normalized", func(t *testing.T) {
		store := newMemStore(nil)
		store.settings = map[string]string{
			"enabled":         "maybe",
			"kb_threshold":    "abc",
			"auto_close_days": "1",
		}
		svc := NewSettingsService(fakeSettingsRepo{store}, config.DefaultAssistantConfig(), nil)
		cfg := svc.Current(ctx)
		assert.True(t, cfg.Enabled)
		assert.Equal(t, 80, cfg.KBThreshold)
		assert.Equal(t, 2, cfg.AutoCloseDays)
	})

	t.Run("no store", func(t *testing.T) {
		svc := NewSettingsService(nil, config.DefaultAssistantConfig(), nil)
		assert.Equal(t, config.DefaultAssistantConfig(), svc.Current(ctx))
		_, err := svc.Update(ctx, SettingsPatch{KBThreshold: intPtr(50)})
		assert.Equal(t, "SERVICE_UNAVAILABLE", errorCode(t, err))
	})
}
