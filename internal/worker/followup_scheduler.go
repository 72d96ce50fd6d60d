package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/internal/service"
)

// Sweeper runs one follow-up pass.
type Sweeper interface {
	ProcessAutoFollowup(ctx context.Context, cfg config.AssistantConfig) service.FollowupResult
}

// FollowupScheduler runs the follow-up sweep periodically. Sweeps never overlap.
type FollowupScheduler struct {
	sweeper  Sweeper
	settings SettingsSource
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewFollowupScheduler builds the scheduler.
func NewFollowupScheduler(sweeper Sweeper, settings SettingsSource, metrics *observability.Metrics, logger *zap.Logger) *FollowupScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FollowupScheduler{sweeper: sweeper, settings: settings, metrics: metrics, logger: logger}
}

// RunOnce performs a single sweep with the current settings.
func (s *FollowupScheduler) RunOnce(ctx context.Context) service.FollowupResult {
	cfg := s.settings.Current(ctx)
	res := s.sweeper.ProcessAutoFollowup(ctx, cfg)
	if !res.Disabled {
		s.metrics.RecordFollowup(res.Reminders, res.Warnings, res.Closed, res.Errors)
	}
	return res
}

// Run sweeps on the configured interval until ctx is cancelled. The interval is re-read after
// every sweep.
func (s *FollowupScheduler) Run(ctx context.Context) {
	interval := s.settings.Current(ctx).FollowupInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("follow-up scheduler started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("follow-up scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
			if next := s.settings.Current(ctx).FollowupInterval(); next != interval {
				interval = next
				ticker.Reset(interval)
				s.logger.Info("follow-up interval changed", zap.Duration("interval", interval))
			}
		}
	}
}
