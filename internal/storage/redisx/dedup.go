package redisx

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

// Dedup remembers processed event ids per consumer.
type Dedup struct {
	rdb      redis.Cmdable
	consumer string
}

// NewDedup creates a Dedup scoped to consumer.
func NewDedup(rdb redis.Cmdable, consumer string) *Dedup {
	return &Dedup{rdb: rdb, consumer: consumer}
}

// Claim returns true the first time eventID is seen within TTLDedup.
func (d *Dedup) Claim(ctx context.Context, eventID string) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, key(KeyDedup, d.consumer, eventID), "1", TTLDedup).Result()
	if err != nil {
		return false, errors.Wrap(err, "claim event")
	}
	return ok, nil
}

// Release forgets eventID so a failed attempt can be redelivered.
func (d *Dedup) Release(ctx context.Context, eventID string) error {
	if err := d.rdb.Del(ctx, key(KeyDedup, d.consumer, eventID)).Err(); err != nil {
		return errors.Wrap(err, "release event")
	}
	return nil
}
