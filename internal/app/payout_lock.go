/**
 * @description
 * Redis-backed per-affiliate payout lock. Two concurrent payout requests for
 * the same affiliate must not both read the same balance, so the first one
 * takes a short-lived SET NX lock and the second is turned away.
 */
package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const payoutLockTTL = 30 * time.Second

// RedisPayoutLocker implements PayoutLocker on a Redis client.
type RedisPayoutLocker struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisPayoutLocker creates a new payout locker.
func NewRedisPayoutLocker(client redis.UniversalClient, prefix string) *RedisPayoutLocker {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "directory:payout_lock"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	return &RedisPayoutLocker{client: client, prefix: trimmedPrefix}
}

// Acquire takes the payout lock for one affiliate. The lock expires on its
// own after payoutLockTTL in case the holder dies before releasing it.
func (l *RedisPayoutLocker) Acquire(ctx context.Context, affiliateID uuid.UUID) (func(), bool, error) {
	if l == nil || l.client == nil {
		// Without Redis the unique in-flight payout index is the only guard.
		return func() {}, true, nil
	}

	key := fmt.Sprintf("%s:%s", l.prefix, affiliateID)
	ok, err := l.client.SetNX(ctx, key, "1", payoutLockTTL).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		if err := l.client.Del(context.Background(), key).Err(); err != nil {
			log.Printf("WARN: failed to release payout lock %s: %v", key, err)
		}
	}
	return release, true, nil
}
