package redisx

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/instasupply/internal/domain/auth"
)

var _ auth.Denylist = (*Denylist)(nil)

// Denylist stores revoked token ids.
type Denylist struct {
	rdb redis.Cmdable
}

// NewDenylist creates a Denylist.
func NewDenylist(rdb redis.Cmdable) *Denylist {
	return &Denylist{rdb: rdb}
}

// Revoke marks jti as revoked for ttl. A non-positive ttl is a no-op since
// the token has already expired.
func (d *Denylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := d.rdb.Set(ctx, key(KeyRevoked, jti), "1", ttl).Err(); err != nil {
		return errors.Wrap(err, "revoke token")
	}
	return nil
}

// Revoked reports whether jti has been revoked.
func (d *Denylist) Revoked(ctx context.Context, jti string) (bool, error) {
	n, err := d.rdb.Exists(ctx, key(KeyRevoked, jti)).Result()
	if err != nil {
		return false, errors.Wrap(err, "check revoked token")
	}
	return n > 0, nil
}
