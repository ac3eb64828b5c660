package redisx

import (
	"fmt"
	"time"
)

const (
	// otp:{email} -> 4 digit code
	KeyOTP = "otp:%s"

	// revoked:{jti} -> "1", lives until the token would have expired
	KeyRevoked = "revoked:%s"

	// dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// ratelimit:{client}:{window start unix}
	KeyRateLimit = "ratelimit:%s:%d"
)

// TTLDedup bounds how long a processed event id is remembered.
var TTLDedup = 48 * time.Hour

func key(format string, args ...any) string { return fmt.Sprintf(format, args...) }
