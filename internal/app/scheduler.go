/**
 * @description
 * Cron scheduler setup for scheduled jobs.
 */
package app

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/vyaparlink/directory-server/internal/config"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *slog.Logger
	config config.Config
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(jobs *Jobs, logger *slog.Logger, cfg config.Config) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:   c,
		jobs:   jobs,
		logger: logger,
		config: cfg,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.config.EarningsRefreshSchedule, s.jobs.RefreshEarningsCaches); err != nil {
		s.logger.Error("failed to schedule earnings cache refresh job", "error", err)
	} else {
		s.logger.Info("scheduled earnings cache refresh job", "schedule", s.config.EarningsRefreshSchedule)
	}

	if _, err := s.cron.AddFunc(s.config.SubscriptionExpirySchedule, s.jobs.DeactivateExpiredSubscriptions); err != nil {
		s.logger.Error("failed to schedule subscription expiry job", "error", err)
	} else {
		s.logger.Info("scheduled subscription expiry job", "schedule", s.config.SubscriptionExpirySchedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
