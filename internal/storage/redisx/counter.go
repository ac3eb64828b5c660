package redisx

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

// WindowCounter counts hits per client in fixed windows.
type WindowCounter struct {
	rdb redis.Cmdable
	now func() time.Time
}

// NewWindowCounter creates a WindowCounter.
func NewWindowCounter(rdb redis.Cmdable) *WindowCounter {
	return &WindowCounter{rdb: rdb, now: time.Now}
}

// Hit increments the counter of client in the current window and returns the
// new count and the time until the window resets.
func (c *WindowCounter) Hit(ctx context.Context, client string, window time.Duration) (int64, time.Duration, error) {
	now := c.now()
	start := now.Truncate(window)
	k := key(KeyRateLimit, client, start.Unix())

	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, errors.Wrap(err, "rate limit hit")
	}
	return incr.Val(), start.Add(window).Sub(now), nil
}
