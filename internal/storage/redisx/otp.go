package redisx

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/instasupply/internal/domain/auth"
)

var _ auth.OTPStore = (*OTPStore)(nil)

// OTPStore keeps one code per email. Expiry is enforced by the key TTL.
type OTPStore struct {
	rdb redis.Cmdable
}

// NewOTPStore creates an OTPStore.
func NewOTPStore(rdb redis.Cmdable) *OTPStore {
	return &OTPStore{rdb: rdb}
}

func otpKey(email string) string { return key(KeyOTP, strings.ToLower(email)) }

// Save replaces any previous code for email.
func (s *OTPStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, otpKey(email), code, ttl).Err(); err != nil {
		return errors.Wrap(err, "save otp")
	}
	return nil
}

// Get returns the live code for email or auth.ErrOTPMissing.
func (s *OTPStore) Get(ctx context.Context, email string) (string, error) {
	code, err := s.rdb.Get(ctx, otpKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", auth.ErrOTPMissing
		}
		return "", errors.Wrap(err, "get otp")
	}
	return code, nil
}

// Delete consumes the code for email.
func (s *OTPStore) Delete(ctx context.Context, email string) error {
	if err := s.rdb.Del(ctx, otpKey(email)).Err(); err != nil {
		return errors.Wrap(err, "delete otp")
	}
	return nil
}
