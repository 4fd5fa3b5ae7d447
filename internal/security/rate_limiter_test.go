package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIP_PrefersForwardedForFirstHop(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	req.RemoteAddr = "10.0.0.1:5555"

	assert.Equal(t, "203.0.113.5", ClientIP(req))
}

func TestClientIP_FallsBackToRealIPThenPeerAddress(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("X-Real-IP", "198.51.100.7")
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "198.51.100.7", ClientIP(req))

	req2 := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req2.RemoteAddr = "10.0.0.2:4444"
	assert.Equal(t, "10.0.0.2", ClientIP(req2))
}

func TestIPRateLimiter_AllowsUpToLimitThenRejects(t *testing.T) {
	t.Parallel()

	limiter := NewIPRateLimiter(100, time.Minute, nil)
	clientIP := "203.0.113.9"

	for i := 0; i < 100; i++ {
		result := limiter.Allow(clientIP)
		require.True(t, result.Allowed, "request %d should be allowed", i+1)
	}

	result := limiter.Allow(clientIP)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	require.NotNil(t, result.Problem)
	assert.Equal(t, http.StatusTooManyRequests, result.Problem.Status)
	assert.Greater(t, result.RetryAfter, time.Duration(0))
}

func TestIPRateLimiter_TracksClientsIndependently(t *testing.T) {
	t.Parallel()

	limiter := NewIPRateLimiter(1, time.Minute, nil)

	resultA := limiter.Allow("203.0.113.1")
	assert.True(t, resultA.Allowed)
	resultA2 := limiter.Allow("203.0.113.1")
	assert.False(t, resultA2.Allowed)

	resultB := limiter.Allow("203.0.113.2")
	assert.True(t, resultB.Allowed, "a different client IP should have its own budget")
}

func TestIPRateLimiter_DefaultsWhenUnset(t *testing.T) {
	t.Parallel()

	limiter := NewIPRateLimiter(0, 0, nil)
	result := limiter.Allow("203.0.113.3")
	assert.True(t, result.Allowed)
	assert.Equal(t, 99, result.Remaining)
}

func TestIPRateLimiter_CleanupIdleRemovesStaleClients(t *testing.T) {
	t.Parallel()

	limiter := NewIPRateLimiter(1, time.Minute, nil)
	limiter.Allow("203.0.113.4")

	limiter.CleanupIdle(0)

	// Budget should be fresh again after cleanup removed the client's window.
	result := limiter.Allow("203.0.113.4")
	assert.True(t, result.Allowed)
}

func TestEnhancedRateLimiter_CheckLimitEnforcesMethodSpecificLimit(t *testing.T) {
	t.Parallel()

	limiter := NewEnhancedRateLimiter(nil, nil)
	limiter.SetMethodRateLimit("take_snapshot", &RateLimitConfig{
		RequestsPerSecond: 1000,
		BurstSize:         2,
		WindowSize:        time.Second,
	})

	clientID := "test_client"
	allowed := 0
	for i := 0; i < 5; i++ {
		if err := limiter.CheckLimit("take_snapshot", clientID); err == nil {
			allowed++
		}
	}
	assert.LessOrEqual(t, allowed, 2, "burst size should cap immediate allowances")
}

func TestEnhancedRateLimiter_ResetClientLimitsClearsState(t *testing.T) {
	t.Parallel()

	limiter := NewEnhancedRateLimiter(nil, nil)
	clientID := "test_client"

	require.NoError(t, limiter.CheckLimit("ping", clientID))
	limiter.ResetClientLimits(clientID)

	stats := limiter.GetClientStats(clientID)
	assert.Equal(t, false, stats["exists"])
}

func TestEnhancedRateLimiter_GetGlobalStatsReportsConfiguredMethods(t *testing.T) {
	t.Parallel()

	limiter := NewEnhancedRateLimiter(nil, nil)
	stats := limiter.GetGlobalStats()
	assert.Greater(t, stats["configured_methods"], 0)
}
