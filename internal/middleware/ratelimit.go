package middleware

import (
	"context"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"go-auth-service/internal/logger"
	"go-auth-service/pkg/apierror"
)

const (
	defaultRateLimit  = 10
	defaultRateWindow = time.Minute
	unknownClient     = "unknown"
)

type windowCounter interface {
	IncrementAndGet(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimitMiddleware admits at most limit requests per client and path in each fixed window.
type RateLimitMiddleware struct {
	counter windowCounter
	limit   int64
	window  time.Duration
	failLog rate.Sometimes
}

func NewRateLimitMiddleware(counter windowCounter, limit int, window time.Duration) *RateLimitMiddleware {
	if limit <= 0 {
		limit = defaultRateLimit
	}
	if window <= 0 {
		window = defaultRateWindow
	}

	return &RateLimitMiddleware{
		counter: counter,
		limit:   int64(limit),
		window:  window,
		failLog: rate.Sometimes{First: 1, Interval: 30 * time.Second},
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := RateLimitKey(ClientIP(r), r.URL.Path)

		count, err := m.counter.IncrementAndGet(r.Context(), key, m.window)
		if err != nil {
			m.failLog.Do(func() {
				logger.From(r.Context()).Warn("rate counter unavailable, admitting request", "error", err)
			})
			next.ServeHTTP(w, r)
			return
		}

		if count > m.limit {
			w.Header().Set("Retry-After", strconv.Itoa(int(m.window.Seconds())))
			writeAPIError(w, apierror.TooManyRequests())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func RateLimitKey(client string, path string) string {
	return "rate_limit:" + client + ":" + path
}

// ClientIP returns the first parseable address among the first X-Forwarded-For hop,
// X-Real-IP and CF-Connecting-IP, or "unknown".
func ClientIP(r *http.Request) string {
	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	candidates := []string{
		first,
		r.Header.Get("X-Real-IP"),
		r.Header.Get("CF-Connecting-IP"),
	}

	for _, candidate := range candidates {
		addr, err := netip.ParseAddr(strings.TrimSpace(candidate))
		if err == nil {
			return addr.Unmap().String()
		}
	}
	return unknownClient
}
