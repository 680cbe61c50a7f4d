package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/veridoc/veridoc/internal/config"
	"github.com/veridoc/veridoc/pkg/lifecycle"
)

// scheduler runs the periodic maintenance jobs: webhook delivery retries
// and review queue escalation.
type scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	logger *slog.Logger
}

func newScheduler(domain *Domain, cfg *config.Config, logger *slog.Logger) (*scheduler, error) {
	s := &scheduler{
		cron:   cron.New(),
		ctx:    context.Background(),
		logger: logger.With("system", "scheduler"),
	}

	if _, err := s.cron.AddFunc(cfg.Webhooks.SweepSchedule, func() {
		swept, err := domain.Webhooks.SweepDue(s.ctx)
		if err != nil {
			s.logger.Error("webhook sweep failed", "error", err)
			return
		}
		if swept > 0 {
			s.logger.Info("webhook sweep complete", "attempted", swept)
		}
	}); err != nil {
		return nil, fmt.Errorf("webhook sweep schedule: %w", err)
	}

	if _, err := s.cron.AddFunc(cfg.Webhooks.SweepSchedule, func() {
		escalated, err := domain.Review.EscalateOverdue(s.ctx)
		if err != nil {
			s.logger.Error("review escalation failed", "error", err)
			return
		}
		if escalated > 0 {
			s.logger.Info("review escalation complete", "escalated", escalated)
		}
	}); err != nil {
		return nil, fmt.Errorf("review escalation schedule: %w", err)
	}

	return s, nil
}

// Start begins the cron schedule on startup and stops it on shutdown,
// waiting for any in-flight job to finish.
func (s *scheduler) Start(lc *lifecycle.Coordinator) {
	s.ctx = lc.Context()

	lc.OnStartup(func() {
		s.cron.Start()
		s.logger.Info("scheduler started")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
		s.logger.Info("scheduler stopped")
	})
}
