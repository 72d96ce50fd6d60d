package config

import "time"

// AssistantConfig is the runtime configuration of the triage assistant. A value of this type
// is passed explicitly into every engine entry point.
type AssistantConfig struct {
	Enabled                  bool   `json:"enabled"`
	Name                     string `json:"name"`
	KBThreshold              int    `json:"kb_threshold"`
	BusinessHoursStart       int    `json:"business_hours_start"`
	BusinessHoursEnd         int    `json:"business_hours_end"`
	ReminderDelayHours       int    `json:"reminder_delay_hours"`
	AutoCloseDays            int    `json:"auto_close_days"`
	ResponseDelayMeanMs      int    `json:"response_delay_mean_ms"`
	ResponseDelayVariationMs int    `json:"response_delay_variation_ms"`
	KBBaseURL                string `json:"kb_base_url"`
	FollowupIntervalMinutes  int    `json:"followup_interval_minutes"`
	MaxConcurrency           int    `json:"max_concurrency"`
	PipelineTimeoutSeconds   int    `json:"pipeline_timeout_seconds"`
}

// DefaultAssistantConfig returns the documented defaults: enabled, KB threshold 80, business
// hours 08-18, first reminder after 48h, auto-close after 7 days, reply delay 1000±400ms.
func DefaultAssistantConfig() AssistantConfig {
	return AssistantConfig{
		Enabled:                  true,
		Name:                     "Asistente Virtual",
		KBThreshold:              80,
		BusinessHoursStart:       8,
		BusinessHoursEnd:         18,
		ReminderDelayHours:       48,
		AutoCloseDays:            7,
		ResponseDelayMeanMs:      1000,
		ResponseDelayVariationMs: 400,
		KBBaseURL:                "http://localhost:3000",
		FollowupIntervalMinutes:  60,
		MaxConcurrency:           8,
		PipelineTimeoutSeconds:   30,
	}
}

// Normalize replaces out-of-range values with defaults or clamps them.
func (a AssistantConfig) Normalize() AssistantConfig {
	def := DefaultAssistantConfig()
	if a.Name == "" {
		a.Name = def.Name
	}
	if a.KBThreshold < 0 {
		a.KBThreshold = 0
	}
	if a.KBThreshold > 100 {
		a.KBThreshold = 100
	}
	if a.BusinessHoursStart < 0 || a.BusinessHoursStart > 23 {
		a.BusinessHoursStart = def.BusinessHoursStart
	}
	if a.BusinessHoursEnd < 0 || a.BusinessHoursEnd > 24 {
		a.BusinessHoursEnd = def.BusinessHoursEnd
	}
	if a.ReminderDelayHours <= 0 {
		a.ReminderDelayHours = def.ReminderDelayHours
	}
	// the warning stage needs a full day between it and the closure
	if a.AutoCloseDays < 2 {
		a.AutoCloseDays = 2
	}
	if a.ResponseDelayMeanMs < 0 {
		a.ResponseDelayMeanMs = 0
	}
	if a.ResponseDelayVariationMs < 0 {
		a.ResponseDelayVariationMs = 0
	}
	if a.FollowupIntervalMinutes <= 0 {
		a.FollowupIntervalMinutes = def.FollowupIntervalMinutes
	}
	if a.MaxConcurrency <= 0 {
		a.MaxConcurrency = def.MaxConcurrency
	}
	if a.PipelineTimeoutSeconds <= 0 {
		a.PipelineTimeoutSeconds = def.PipelineTimeoutSeconds
	}
	return a
}

// ReminderDelay is the idle time before the first reminder.
func (a AssistantConfig) ReminderDelay() time.Duration {
	return time.Duration(a.ReminderDelayHours) * time.Hour
}

// WarningAfter is the idle time before the final warning.
func (a AssistantConfig) WarningAfter() time.Duration {
	return time.Duration(a.AutoCloseDays-1) * 24 * time.Hour
}

// AutoCloseAfter is the idle time after which a ticket is closed.
func (a AssistantConfig) AutoCloseAfter() time.Duration {
	return time.Duration(a.AutoCloseDays) * 24 * time.Hour
}

// FollowupInterval is the sweep cadence.
func (a AssistantConfig) FollowupInterval() time.Duration {
	return time.Duration(a.FollowupIntervalMinutes) * time.Minute
}

// PipelineTimeout bounds a single background triage run.
func (a AssistantConfig) PipelineTimeout() time.Duration {
	return time.Duration(a.PipelineTimeoutSeconds) * time.Second
}
