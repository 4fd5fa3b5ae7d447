package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sentryhub/capturectl/internal/logging"
)

// RateLimitConfig defines rate limiting configuration for a method
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	WindowSize        time.Duration
}

// DefaultRateLimitConfig returns default rate limiting configuration
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerSecond: 100.0,
		BurstSize:         200,
		WindowSize:        time.Second,
	}
}

// MethodRateLimit defines rate limits for specific methods
type MethodRateLimit struct {
	Method string
	Config *RateLimitConfig
}

// ProblemDetail is the application/problem+json body returned when a
// request is rejected (RFC 7807 shape, per spec §6/§8 scenario 6).
type ProblemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// RateLimitResult carries the outcome of an IP rate-limit check along
// with the header values a router must set on the response, whether the
// request was allowed or not.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	Problem    *ProblemDetail // non-nil only when !Allowed
}

// clientWindow holds the sliding-window request log for one client IP.
type clientWindow struct {
	mu        sync.Mutex
	timestamp []time.Time
}

// IPRateLimiter enforces a sliding-window request budget per client IP,
// derived from X-Forwarded-For (first hop), X-Real-IP, or the peer
// address, exactly as spec §6 describes.
type IPRateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientWindow
	limit    int
	window   time.Duration
	logger   *logging.Logger
	lastSeen map[string]time.Time
}

// NewIPRateLimiter constructs an IPRateLimiter allowing limit requests
// per window for each client IP. Defaults to 100 requests per minute
// when limit or window are zero.
func NewIPRateLimiter(limit int, window time.Duration, logger *logging.Logger) *IPRateLimiter {
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	if logger == nil {
		logger = logging.GetLogger("rate-limiter")
	}
	return &IPRateLimiter{
		clients:  make(map[string]*clientWindow),
		lastSeen: make(map[string]time.Time),
		limit:    limit,
		window:   window,
		logger:   logger,
	}
}

// ClientIP extracts the client address spec §6 names: the first hop of
// X-Forwarded-For, else X-Real-IP, else the request's peer address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Allow checks whether clientIP has budget remaining in the current
// window and records the request if so. The returned RateLimitResult's
// Problem field is populated with the application/problem+json body and
// Retry-After whenever the request is rejected.
func (l *IPRateLimiter) Allow(clientIP string) RateLimitResult {
	now := time.Now()

	l.mu.Lock()
	cw, ok := l.clients[clientIP]
	if !ok {
		cw = &clientWindow{}
		l.clients[clientIP] = cw
	}
	l.lastSeen[clientIP] = now
	l.mu.Unlock()

	cw.mu.Lock()
	defer cw.mu.Unlock()

	cutoff := now.Add(-l.window)
	kept := cw.timestamp[:0]
	for _, ts := range cw.timestamp {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	cw.timestamp = kept

	if len(cw.timestamp) >= l.limit {
		retryAfter := l.window - now.Sub(cw.timestamp[0])
		if retryAfter < 0 {
			retryAfter = 0
		}
		l.logger.WithFields(logging.Fields{
			"client_ip": clientIP,
			"limit":     l.limit,
			"action":    "ip_rate_limit_exceeded",
		}).Warn("client exceeded request rate limit")
		return RateLimitResult{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: retryAfter,
			Problem: &ProblemDetail{
				Type:   "about:blank",
				Title:  "Too Many Requests",
				Status: http.StatusTooManyRequests,
				Detail: fmt.Sprintf("rate limit of %d requests per %s exceeded", l.limit, l.window),
			},
		}
	}

	cw.timestamp = append(cw.timestamp, now)
	return RateLimitResult{
		Allowed:   true,
		Remaining: l.limit - len(cw.timestamp),
	}
}

// CleanupIdle removes client windows that have not been touched in
// maxAge, bounding memory for a long-lived process.
func (l *IPRateLimiter) CleanupIdle(maxAge time.Duration) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, last := range l.lastSeen {
		if now.Sub(last) > maxAge {
			delete(l.clients, ip)
			delete(l.lastSeen, ip)
		}
	}
}

// ClientRateLimit tracks rate limiting for a specific client
type ClientRateLimit struct {
	Limiter      *rate.Limiter
	LastAccess   time.Time
	RequestCount int64
	BlockedCount int64
}

// EnhancedRateLimiter provides per-method token-bucket limits on top of
// the IP-derived sliding window, for callers that distinguish expensive
// operations (e.g. start_recording) from cheap ones (e.g. ping).
type EnhancedRateLimiter struct {
	limits        map[string]*RateLimitConfig
	clientLimits  map[string]*ClientRateLimit
	globalLimiter *rate.Limiter
	mutex         sync.RWMutex
	logger        *logging.Logger
	config        interface{}

	maxRequestsPerMinute int
	blockedClients       map[string]time.Time
	blockDuration        time.Duration
}

// NewEnhancedRateLimiter creates a new enhanced rate limiter
func NewEnhancedRateLimiter(logger *logging.Logger, config interface{}) *EnhancedRateLimiter {
	limiter := &EnhancedRateLimiter{
		limits:               make(map[string]*RateLimitConfig),
		clientLimits:         make(map[string]*ClientRateLimit),
		globalLimiter:        rate.NewLimiter(rate.Every(time.Second), 1000),
		logger:               logger,
		config:               config,
		maxRequestsPerMinute: 600,
		blockedClients:       make(map[string]time.Time),
		blockDuration:        5 * time.Minute,
	}

	if adapter, ok := config.(*ConfigAdapter); ok {
		limiter.setConfigBasedLimits(adapter)
	} else {
		limiter.setDefaultLimits()
	}

	return limiter
}

// setConfigBasedLimits sets rate limits from configuration adapter
func (erl *EnhancedRateLimiter) setConfigBasedLimits(adapter *ConfigAdapter) {
	configLimits := adapter.CreateRateLimiterConfig()

	for method, config := range configLimits {
		erl.limits[method] = config
		erl.logger.WithFields(logging.Fields{
			"method":              method,
			"requests_per_second": config.RequestsPerSecond,
			"burst_size":          config.BurstSize,
			"action":              "config_rate_limit_applied",
			"component":           "security_rate_limiter",
		}).Info("Configuration-based rate limit applied")
	}
}

// setDefaultLimits sets default rate limits for common methods
func (erl *EnhancedRateLimiter) setDefaultLimits() {
	defaultLimits := map[string]*RateLimitConfig{
		"ping": {
			RequestsPerSecond: 10.0,
			BurstSize:         20,
			WindowSize:        time.Second,
		},
		"list_cameras": {
			RequestsPerSecond: 5.0,
			BurstSize:         10,
			WindowSize:        time.Second,
		},
		"start_recording": {
			RequestsPerSecond: 2.0,
			BurstSize:         5,
			WindowSize:        time.Second,
		},
		"take_snapshot": {
			RequestsPerSecond: 3.0,
			BurstSize:         6,
			WindowSize:        time.Second,
		},
		"start_streaming": {
			RequestsPerSecond: 2.0,
			BurstSize:         5,
			WindowSize:        time.Second,
		},
		"stop_streaming": {
			RequestsPerSecond: 2.0,
			BurstSize:         5,
			WindowSize:        time.Second,
		},
		"authenticate": {
			RequestsPerSecond: 1.0,
			BurstSize:         3,
			WindowSize:        time.Second,
		},
	}

	for method, config := range defaultLimits {
		erl.limits[method] = config
	}
}

// SetMethodRateLimit sets a custom rate limit for a specific method
func (erl *EnhancedRateLimiter) SetMethodRateLimit(method string, config *RateLimitConfig) {
	erl.mutex.Lock()
	defer erl.mutex.Unlock()

	erl.limits[method] = config
	erl.logger.WithFields(logging.Fields{
		"method":              method,
		"requests_per_second": config.RequestsPerSecond,
		"burst_size":          config.BurstSize,
		"action":              "rate_limit_set",
	}).Info("Method rate limit configured")
}

// CheckLimit checks if a client has exceeded rate limits for a method
func (erl *EnhancedRateLimiter) CheckLimit(method, clientID string) error {
	erl.mutex.Lock()
	defer erl.mutex.Unlock()

	if blockTime, blocked := erl.blockedClients[clientID]; blocked {
		if time.Since(blockTime) < erl.blockDuration {
			erl.logger.WithFields(logging.Fields{
				"client_id": clientID,
				"method":    method,
				"action":    "rate_limit_blocked",
			}).Warn("Client blocked due to rate limit violations")
			return fmt.Errorf("client blocked due to rate limit violations")
		}
		delete(erl.blockedClients, clientID)
	}

	clientLimit, exists := erl.clientLimits[clientID]
	if !exists {
		clientLimit = &ClientRateLimit{
			Limiter:      rate.NewLimiter(rate.Every(time.Second), 100),
			LastAccess:   time.Now(),
			RequestCount: 0,
			BlockedCount: 0,
		}
		erl.clientLimits[clientID] = clientLimit
	}

	clientLimit.LastAccess = time.Now()
	clientLimit.RequestCount++

	if !erl.globalLimiter.Allow() {
		erl.logger.WithFields(logging.Fields{
			"client_id": clientID,
			"method":    method,
			"action":    "global_rate_limit_exceeded",
		}).Warn("Global rate limit exceeded")
		return fmt.Errorf("global rate limit exceeded")
	}

	if methodConfig, exists := erl.limits[method]; exists {
		methodLimiter := rate.NewLimiter(rate.Every(time.Duration(float64(time.Second)/methodConfig.RequestsPerSecond)), methodConfig.BurstSize)

		if !methodLimiter.Allow() {
			clientLimit.BlockedCount++

			erl.logger.WithFields(logging.Fields{
				"client_id": clientID,
				"method":    method,
				"action":    "method_rate_limit_exceeded",
				"limit":     methodConfig.RequestsPerSecond,
			}).Warn("Method rate limit exceeded")

			if clientLimit.BlockedCount >= 10 {
				erl.blockedClients[clientID] = time.Now()
				erl.logger.WithFields(logging.Fields{
					"client_id": clientID,
					"method":    method,
					"action":    "client_blocked",
					"duration":  erl.blockDuration,
				}).Warn("Client blocked due to repeated rate limit violations")
			}

			return fmt.Errorf("rate limit exceeded for method %s", method)
		}
	}

	if clientLimit.RequestCount > int64(erl.maxRequestsPerMinute) {
		clientLimit.BlockedCount++

		erl.logger.WithFields(logging.Fields{
			"client_id": clientID,
			"method":    method,
			"action":    "client_rate_limit_exceeded",
			"requests":  clientLimit.RequestCount,
			"limit":     erl.maxRequestsPerMinute,
		}).Warn("Client rate limit exceeded")

		if clientLimit.BlockedCount >= 5 {
			erl.blockedClients[clientID] = time.Now()
			erl.logger.WithFields(logging.Fields{
				"client_id": clientID,
				"method":    method,
				"action":    "client_blocked",
				"duration":  erl.blockDuration,
			}).Warn("Client blocked due to excessive requests")
		}

		return fmt.Errorf("client rate limit exceeded")
	}

	return nil
}

// ResetClientLimits resets rate limiting for a specific client
func (erl *EnhancedRateLimiter) ResetClientLimits(clientID string) {
	erl.mutex.Lock()
	defer erl.mutex.Unlock()

	delete(erl.clientLimits, clientID)
	delete(erl.blockedClients, clientID)

	erl.logger.WithFields(logging.Fields{
		"client_id": clientID,
		"action":    "rate_limit_reset",
	}).Info("Client rate limits reset")
}

// GetClientStats returns rate limiting statistics for a client
func (erl *EnhancedRateLimiter) GetClientStats(clientID string) map[string]interface{} {
	erl.mutex.RLock()
	defer erl.mutex.RUnlock()

	clientLimit, exists := erl.clientLimits[clientID]
	if !exists {
		return map[string]interface{}{
			"client_id": clientID,
			"exists":    false,
		}
	}

	_, blocked := erl.blockedClients[clientID]

	return map[string]interface{}{
		"client_id":         clientID,
		"exists":            true,
		"request_count":     clientLimit.RequestCount,
		"blocked_count":     clientLimit.BlockedCount,
		"last_access":       clientLimit.LastAccess,
		"currently_blocked": blocked,
		"block_duration":    erl.blockDuration,
	}
}

// GetMethodStats returns rate limiting statistics for a method
func (erl *EnhancedRateLimiter) GetMethodStats(method string) map[string]interface{} {
	erl.mutex.RLock()
	defer erl.mutex.RUnlock()

	config, exists := erl.limits[method]
	if !exists {
		return map[string]interface{}{
			"method": method,
			"exists": false,
		}
	}

	return map[string]interface{}{
		"method":              method,
		"exists":              true,
		"requests_per_second": config.RequestsPerSecond,
		"burst_size":          config.BurstSize,
		"window_size":         config.WindowSize,
	}
}

// GetGlobalStats returns global rate limiting statistics
func (erl *EnhancedRateLimiter) GetGlobalStats() map[string]interface{} {
	erl.mutex.RLock()
	defer erl.mutex.RUnlock()

	return map[string]interface{}{
		"total_clients":           len(erl.clientLimits),
		"blocked_clients":         len(erl.blockedClients),
		"configured_methods":      len(erl.limits),
		"max_requests_per_minute": erl.maxRequestsPerMinute,
		"block_duration":          erl.blockDuration,
	}
}

// CleanupOldClients removes old client rate limit entries
func (erl *EnhancedRateLimiter) CleanupOldClients(maxAge time.Duration) {
	erl.mutex.Lock()
	defer erl.mutex.Unlock()

	now := time.Now()
	removed := 0

	for clientID, clientLimit := range erl.clientLimits {
		if now.Sub(clientLimit.LastAccess) > maxAge {
			delete(erl.clientLimits, clientID)
			removed++
		}
	}

	for clientID, blockTime := range erl.blockedClients {
		if now.Sub(blockTime) > erl.blockDuration {
			delete(erl.blockedClients, clientID)
		}
	}

	if removed > 0 {
		erl.logger.WithFields(logging.Fields{
			"removed_clients": removed,
			"action":          "cleanup_completed",
		}).Info("Old client rate limit entries cleaned up")
	}
}

// StartCleanupRoutine starts a background routine to clean up old client entries
func (erl *EnhancedRateLimiter) StartCleanupRoutine(interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			erl.CleanupOldClients(maxAge)
		}
	}()
}
