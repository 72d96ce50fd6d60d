package service

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/repository"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

// Settings hash fields.
const (
	settingEnabled            = "enabled"
	settingName               = "name"
	settingKBThreshold        = "kb_threshold"
	settingHoursStart         = "business_hours_start"
	settingHoursEnd           = "business_hours_end"
	settingReminderDelayHours = "reminder_delay_hours"
	settingAutoCloseDays      = "auto_close_days"
	settingDelayMeanMs        = "response_delay_mean_ms"
	settingDelayVariationMs   = "response_delay_variation_ms"
	settingKBBaseURL          = "kb_base_url"
)

// SettingsPatch is a partial update of the runtime settings record.
type SettingsPatch struct {
	Enabled                  *bool   `json:"enabled,omitempty"`
	Name                     *string `json:"name,omitempty"`
	KBThreshold              *int    `json:"kb_threshold,omitempty"`
	BusinessHoursStart       *int    `json:"business_hours_start,omitempty"`
	BusinessHoursEnd         *int    `json:"business_hours_end,omitempty"`
	ReminderDelayHours       *int    `json:"reminder_delay_hours,omitempty"`
	AutoCloseDays            *int    `json:"auto_close_days,omitempty"`
	ResponseDelayMeanMs      *int    `json:"response_delay_mean_ms,omitempty"`
	ResponseDelayVariationMs *int    `json:"response_delay_variation_ms,omitempty"`
	KBBaseURL                *string `json:"kb_base_url,omitempty"`
}

// SettingsService resolves the effective assistant configuration.
type SettingsService struct {
	repo     repository.SettingsRepository
	defaults config.AssistantConfig
	logger   *zap.Logger
}

// NewSettingsService builds the service. defaults normally come from the environment.
func NewSettingsService(repo repository.SettingsRepository, defaults config.AssistantConfig, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{repo: repo, defaults: defaults.Normalize(), logger: logger}
}

// Current overlays the stored record on the defaults. Storage errors fall back to the defaults.
func (s *SettingsService) Current(ctx context.Context) config.AssistantConfig {
	if s.repo == nil {
		return s.defaults
	}
	fields, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.Warn("load assistant settings; using defaults", zap.Error(err))
		return s.defaults
	}
	return overlaySettings(s.defaults, fields, s.logger)
}

// Update validates and stores patch, returning the new effective configuration.
func (s *SettingsService) Update(ctx context.Context, patch SettingsPatch) (config.AssistantConfig, error) {
	if s.repo == nil {
		return config.AssistantConfig{}, apperrors.NewUnavailable("settings store not configured")
	}
	fields, err := patchFields(patch)
	if err != nil {
		return config.AssistantConfig{}, err
	}
	if err := s.repo.Save(ctx, fields); err != nil {
		return config.AssistantConfig{}, apperrors.NewInternalError(err)
	}
	return s.Current(ctx), nil
}

func patchFields(p SettingsPatch) (map[string]string, error) {
	fields := map[string]string{}
	invalid := func(field string) error {
		return apperrors.NewValidationError("invalid setting", map[string]any{"field": field})
	}
	if p.Enabled != nil {
		fields[settingEnabled] = strconv.FormatBool(*p.Enabled)
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, invalid(settingName)
		}
		fields[settingName] = name
	}
	ints := []struct {
		key      string
		val      *int
		min, max int
	}{
		{settingKBThreshold, p.KBThreshold, 0, 100},
		{settingHoursStart, p.BusinessHoursStart, 0, 23},
		{settingHoursEnd, p.BusinessHoursEnd, 0, 24},
		{settingReminderDelayHours, p.ReminderDelayHours, 1, 24 * 30},
		{settingAutoCloseDays, p.AutoCloseDays, 2, 365},
		{settingDelayMeanMs, p.ResponseDelayMeanMs, 0, 60_000},
		{settingDelayVariationMs, p.ResponseDelayVariationMs, 0, 60_000},
	}
	for _, f := range ints {
		if f.val == nil {
			continue
		}
		if *f.val < f.min || *f.val > f.max {
			return nil, invalid(f.key)
		}
		fields[f.key] = strconv.Itoa(*f.val)
	}
	if p.KBBaseURL != nil {
		url := strings.TrimSpace(*p.KBBaseURL)
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return nil, invalid(settingKBBaseURL)
		}
		fields[settingKBBaseURL] = url
	}
	if len(fields) == 0 {
		return nil, apperrors.NewValidationError("empty settings patch", nil)
	}
	return fields, nil
}

func overlaySettings(base config.AssistantConfig, fields map[string]string, logger *zap.Logger) config.AssistantConfig {
	cfg := base
	intField := func(key string, dst *int) {
		raw, ok := fields[key]
		if !ok {
			return
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			logger.Warn("ignoring malformed setting", zap.String("field", key), zap.String("value", raw))
			return
		}
		*dst = v
	}
	if raw, ok := fields[settingEnabled]; ok {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.Enabled = v
		} else {
			logger.Warn("ignoring malformed setting", zap.String("field", settingEnabled), zap.String("value", raw))
		}
	}
	if raw, ok := fields[settingName]; ok {
		cfg.Name = raw
	}
	if raw, ok := fields[settingKBBaseURL]; ok {
		cfg.KBBaseURL = raw
	}
	intField(settingKBThreshold, &cfg.KBThreshold)
	intField(settingHoursStart, &cfg.BusinessHoursStart)
	intField(settingHoursEnd, &cfg.BusinessHoursEnd)
	intField(settingReminderDelayHours, &cfg.ReminderDelayHours)
	intField(settingAutoCloseDays, &cfg.AutoCloseDays)
	intField(settingDelayMeanMs, &cfg.ResponseDelayMeanMs)
	intField(settingDelayVariationMs, &cfg.ResponseDelayVariationMs)
	return cfg.Normalize()
}
