package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
)

type earningsStoreStub struct {
	ids       []uuid.UUID
	drifted   map[uuid.UUID]bool
	failFor   map[uuid.UUID]bool
	refreshed []uuid.UUID
}

func (s *earningsStoreStub) ListProfileIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.ids, nil
}

func (s *earningsStoreStub) RefreshEarningsCache(ctx context.Context, affiliateID uuid.UUID) (bool, error) {
	if s.failFor[affiliateID] {
		return false, errors.New("refresh failed")
	}
	s.refreshed = append(s.refreshed, affiliateID)
	return s.drifted[affiliateID], nil
}

type expiryStoreStub struct {
	count int64
	err   error
	ran   bool
}

func (s *expiryStoreStub) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	s.ran = true
	return s.count, s.err
}

func newTestJobs(earnings EarningsStore, expiry ExpiryStore) *Jobs {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewJobs(earnings, expiry, logger)
}

func TestRefreshEarningsCachesVisitsEveryProfile(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	earnings := &earningsStoreStub{
		ids:     ids,
		drifted: map[uuid.UUID]bool{ids[1]: true},
	}
	jobs := newTestJobs(earnings, &expiryStoreStub{})

	jobs.RefreshEarningsCaches()

	if len(earnings.refreshed) != len(ids) {
		t.Fatalf("expected %d refreshes, got %d", len(ids), len(earnings.refreshed))
	}
}

func TestRefreshEarningsCachesContinuesPastFailures(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	earnings := &earningsStoreStub{
		ids:     ids,
		failFor: map[uuid.UUID]bool{ids[0]: true},
	}
	jobs := newTestJobs(earnings, &expiryStoreStub{})

	jobs.RefreshEarningsCaches()

	if len(earnings.refreshed) != len(ids)-1 {
		t.Fatalf("expected %d refreshes after one failure, got %d", len(ids)-1, len(earnings.refreshed))
	}
}

func TestDeactivateExpiredSubscriptionsRuns(t *testing.T) {
	expiry := &expiryStoreStub{count: 7}
	jobs := newTestJobs(&earningsStoreStub{}, expiry)

	jobs.DeactivateExpiredSubscriptions()

	if !expiry.ran {
		t.Fatal("expected the expiry sweep to run")
	}
}
