package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestOriginMatcher(t *testing.T) {
	matcher := NewOriginMatcher([]string{"http://localhost:5173", "*.example.com", " "})

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"", true},
		{"http://localhost:5173", true},
		{"http://localhost:3000", false},
		{"https://example.com", true},
		{"https://app.example.com", true},
		{"https://deep.app.EXAMPLE.com", true},
		{"https://badexample.com", false},
		{"https://example.com.evil.io", false},
		{"not a url", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, matcher.Allowed(tt.origin), "origin %q", tt.origin)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := gin.New()
	router.Use(CORS(NewOriginMatcher([]string{"http://localhost:5173"})))
	router.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Device-Id")

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.io")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestIdentity(t *testing.T) {
	router := gin.New()
	router.Use(Identity())
	var deviceID, ip string
	router.GET("/", func(c *gin.Context) {
		deviceID = GetDeviceID(c)
		ip = GetClientIP(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DeviceIDHeader, "  device-1  ")
	req.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "device-1", deviceID)
	assert.Equal(t, "203.0.113.7", ip)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Empty(t, deviceID)
	assert.Equal(t, "192.0.2.10", ip)
}

type stubLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (s *stubLimiter) CheckRateLimit(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.err
}

func TestRateLimitIP(t *testing.T) {
	tests := []struct {
		name    string
		limiter *stubLimiter
		status  int
	}{
		{"allowed", &stubLimiter{allowed: true}, http.StatusOK},
		{"blocked", &stubLimiter{allowed: false}, http.StatusTooManyRequests},
		{"limiter failure lets request through", &stubLimiter{err: errors.New("redis down")}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			require.NoError(t, router.SetTrustedProxies(nil))
			router.Use(Identity(), NewRateLimitMiddleware(tt.limiter).RateLimitIP(500, 15*time.Minute))
			router.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			req.RemoteAddr = "192.0.2.10:5555"
			req.Header.Set("X-Forwarded-For", "203.0.113.7")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, []string{"rate_limit_ip:192.0.2.10"}, tt.limiter.keys)
		})
	}
}

// countingLimiter allows limit requests per key
type countingLimiter struct {
	counts map[string]int
}

func (l *countingLimiter) CheckRateLimit(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	l.counts[key]++
	return l.counts[key] <= limit, nil
}

func TestRateLimitIPIgnoresSpoofedForwardedFor(t *testing.T) {
	router := gin.New()
	require.NoError(t, router.SetTrustedProxies(nil))
	router.Use(Identity(), NewRateLimitMiddleware(&countingLimiter{counts: map[string]int{}}).RateLimitIP(1, time.Hour))
	var ledgerIP string
	router.GET("/api/health", func(c *gin.Context) {
		ledgerIP = GetClientIP(c)
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.RemoteAddr = "192.0.2.10:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{
		http.StatusOK,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, codes)
	// The voter ledger still sees the forwarded address
	assert.Equal(t, "198.51.100.1", ledgerIP)
}

func TestRateLimitIPBehindTrustedProxy(t *testing.T) {
	limiter := &stubLimiter{allowed: true}
	router := gin.New()
	require.NoError(t, router.SetTrustedProxies([]string{"10.0.0.1"}))
	router.Use(NewRateLimitMiddleware(limiter).RateLimitIP(500, 15*time.Minute))
	router.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.RemoteAddr = "10.0.0.1:443"
	req.Header.Set("X-Forwarded-For", "198.51.100.4")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, []string{"rate_limit_ip:198.51.100.4"}, limiter.keys)
}
