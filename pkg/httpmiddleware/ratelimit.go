package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Counter counts hits of a key in fixed windows. It returns the count
// including this hit and the time left in the window.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
	// TrustProxy keys clients by the address the fronting proxy reports
	// instead of the connection peer. Enable only behind a proxy that
	// overwrites or appends X-Forwarded-For.
	TrustProxy bool
	// KeyFunc picks the client key. Defaults to ClientIP, or ProxiedClientIP
	// when TrustProxy is set.
	KeyFunc func(*http.Request) string
}

// RateLimit rejects clients that exceed cfg.Max requests per window with 429.
// Counters live in c so limits hold across API replicas. When the counter
// store fails the request is let through.
func RateLimit(cfg RateLimitConfig, c Counter) Middleware {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
		if cfg.TrustProxy {
			cfg.KeyFunc = ProxiedClientIP
		}
	}
	limit := strconv.Itoa(cfg.Max)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n, reset, err := c.Hit(r.Context(), cfg.KeyFunc(r), cfg.Window)
			if err != nil {
				zctx.From(r.Context()).Warn("Rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			remaining := max(int64(cfg.Max)-n, 0)
			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(reset).Unix(), 10))

			if n > int64(cfg.Max) {
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(reset.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "Too many requests, please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the host of the connection peer. Client supplied
// forwarding headers are ignored.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ProxiedClientIP returns the last X-Forwarded-For hop, X-Real-IP, or the
// remote host, in that order. The last hop is the one the trusted proxy
// added; earlier hops are whatever the client sent.
func ProxiedClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		if last := strings.TrimSpace(hops[len(hops)-1]); last != "" {
			return last
		}
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return ClientIP(r)
}
