package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const quotaKeyPrefix = "quiz:quota:"

// quotaRetention keeps date-scoped counters around a little past rollover so
// stale keys clean themselves up.
const quotaRetention = 48 * time.Hour

// QuotaTracker counts answered questions per user per UTC day in Redis.
type QuotaTracker struct {
	client    *redis.Client
	opTimeout time.Duration
}

func NewQuotaTracker(client *redis.Client) *QuotaTracker {
	return &QuotaTracker{client: client, opTimeout: defaultOpTimeout}
}

func (q *QuotaTracker) Count(ctx context.Context, userID string, day time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, q.opTimeout)
	defer cancel()

	count, err := q.client.Get(ctx, quotaKey(userID, day)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, storeErr("quota count", err)
	}
	return count, nil
}

func (q *QuotaTracker) Increment(ctx context.Context, userID string, day time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, q.opTimeout)
	defer cancel()

	pipe := q.client.Pipeline()
	pipe.Incr(ctx, quotaKey(userID, day))
	pipe.Expire(ctx, quotaKey(userID, day), quotaRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr("quota increment", err)
	}
	return nil
}

func quotaKey(userID string, day time.Time) string {
	return quotaKeyPrefix + userID + ":" + day.UTC().Format("2006-01-02")
}
