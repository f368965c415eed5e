/**
 * @description
 * Scheduled job implementations: the nightly earnings cache reconciliation
 * and the periodic subscription expiry sweep.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EarningsStore defines database operations needed by the cache refresh job.
type EarningsStore interface {
	ListProfileIDs(ctx context.Context) ([]uuid.UUID, error)
	RefreshEarningsCache(ctx context.Context, affiliateID uuid.UUID) (bool, error)
}

// ExpiryStore defines database operations needed by the expiry sweep.
type ExpiryStore interface {
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	earnings EarningsStore
	expiry   ExpiryStore
	logger   *slog.Logger
}

// NewJobs creates a new Jobs runner.
func NewJobs(earnings EarningsStore, expiry ExpiryStore, logger *slog.Logger) *Jobs {
	return &Jobs{earnings: earnings, expiry: expiry, logger: logger}
}

// RefreshEarningsCaches reconciles every affiliate's cached earnings fields
// against the referral and payment tables, logging any drift it corrects.
func (j *Jobs) RefreshEarningsCaches() {
	j.logger.Info("starting earnings cache refresh job")
	ctx := context.Background()

	ids, err := j.earnings.ListProfileIDs(ctx)
	if err != nil {
		j.logger.Error("failed to list affiliate profiles", "error", err)
		return
	}

	var drifted int
	for _, id := range ids {
		changed, err := j.earnings.RefreshEarningsCache(ctx, id)
		if err != nil {
			j.logger.Error("failed to refresh earnings cache", "affiliate_id", id, "error", err)
			continue
		}
		if changed {
			j.logger.Warn("corrected earnings cache drift", "affiliate_id", id)
			drifted++
		}
	}

	j.logger.Info("earnings cache refresh job finished", "profiles", len(ids), "drift_corrected", drifted)
}

// DeactivateExpiredSubscriptions deactivates subscriptions whose period has ended.
func (j *Jobs) DeactivateExpiredSubscriptions() {
	j.logger.Info("starting subscription expiry job")
	ctx := context.Background()

	count, err := j.expiry.DeactivateExpired(ctx, time.Now().UTC())
	if err != nil {
		j.logger.Error("failed to deactivate expired subscriptions", "error", err)
		return
	}

	j.logger.Info("subscription expiry job finished", "deactivated", count)
}
