package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-auth-service/internal/model"
	"go-auth-service/internal/revocation"
)

func newRateLimited(t *testing.T, limit int, window time.Duration) (http.Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	mw := NewRateLimitMiddleware(revocation.NewRedisStore(client), limit, window)
	return mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})), mr
}

func hit(h http.Handler, path string, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitFixedWindow(t *testing.T) {
	h, mr := newRateLimited(t, 10, time.Minute)

	for i := 1; i <= 10; i++ {
		rec := hit(h, "/api/auth/login", "203.0.113.9")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := hit(h, "/api/auth/login", "203.0.113.9")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	var body model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "TOO_MANY_REQUESTS", body.Error.Code)

	assert.Equal(t, "11", mustGet(t, mr, "rate_limit:203.0.113.9:/api/auth/login"))

	mr.FastForward(time.Minute)
	rec = hit(h, "/api/auth/login", "203.0.113.9")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitKeyedByClientAndPath(t *testing.T) {
	h, _ := newRateLimited(t, 1, time.Minute)

	assert.Equal(t, http.StatusOK, hit(h, "/api/auth/login", "203.0.113.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "/api/auth/login", "203.0.113.1").Code)

	assert.Equal(t, http.StatusOK, hit(h, "/api/auth/refresh", "203.0.113.1").Code)
	assert.Equal(t, http.StatusOK, hit(h, "/api/auth/login", "203.0.113.2").Code)
}

func TestRateLimitClientsWithoutHeadersShareABucket(t *testing.T) {
	h, mr := newRateLimited(t, 1, time.Minute)

	assert.Equal(t, http.StatusOK, hit(h, "/api/users", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "/api/users", "").Code)
	assert.Equal(t, "2", mustGet(t, mr, "rate_limit:unknown:/api/users"))
}

func TestRateLimitAdmitsWhenCounterUnavailable(t *testing.T) {
	h, mr := newRateLimited(t, 1, time.Minute)
	mr.Close()

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "/api/auth/login", "203.0.113.1").Code)
	}
}

func TestNewRateLimitMiddlewareDefaults(t *testing.T) {
	mw := NewRateLimitMiddleware(nil, 0, 0)
	assert.Equal(t, int64(10), mw.limit)
	assert.Equal(t, time.Minute, mw.window)
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"first forwarded hop", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "203.0.113.5"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "203.0.113.5", "X-Real-IP": "198.51.100.7"}, "203.0.113.5"},
		{"invalid forwarded falls through", map[string]string{"X-Forwarded-For": "garbage", "X-Real-IP": "198.51.100.7"}, "198.51.100.7"},
		{"real ip before cloudflare", map[string]string{"X-Real-IP": "198.51.100.7", "CF-Connecting-IP": "192.0.2.4"}, "198.51.100.7"},
		{"cloudflare", map[string]string{"CF-Connecting-IP": "192.0.2.4"}, "192.0.2.4"},
		{"ipv6", map[string]string{"X-Forwarded-For": " 2001:db8::1 "}, "2001:db8::1"},
		{"mapped ipv4", map[string]string{"X-Real-IP": "::ffff:192.0.2.1"}, "192.0.2.1"},
		{"nothing parses", map[string]string{"X-Forwarded-For": "a, b", "X-Real-IP": "c"}, "unknown"},
		{"no headers", nil, "unknown"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "10.9.9.9:1234"
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, ClientIP(req))
		})
	}
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
