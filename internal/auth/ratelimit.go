package auth

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// maxTrackedLogins bounds memory when many clients hammer the login form.
const maxTrackedLogins = 10000

// RateLimiter counts failed logins per IP and username pair. Records expire
// on their own once the window and any lockout have passed.
type RateLimiter struct {
	mu              sync.Mutex
	attempts        *expirable.LRU[string, *attemptRecord]
	maxAttempts     int
	windowDuration  time.Duration
	lockoutDuration time.Duration
	now             func() time.Time
}

type attemptRecord struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

type RateLimitConfig struct {
	MaxAttempts     int
	WindowDuration  time.Duration
	LockoutDuration time.Duration
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts:     5,
		WindowDuration:  15 * time.Minute,
		LockoutDuration: 30 * time.Minute,
	}
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	defaults := DefaultRateLimitConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = defaults.WindowDuration
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = defaults.LockoutDuration
	}

	return &RateLimiter{
		attempts:        expirable.NewLRU[string, *attemptRecord](maxTrackedLogins, nil, cfg.WindowDuration+cfg.LockoutDuration),
		maxAttempts:     cfg.MaxAttempts,
		windowDuration:  cfg.WindowDuration,
		lockoutDuration: cfg.LockoutDuration,
		now:             time.Now,
	}
}

func rateKey(ip, username string) string {
	return ip + ":" + username
}

// Allow reports whether a login attempt may proceed and, if not, how long the
// caller has to wait.
func (rl *RateLimiter) Allow(ip, username string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record, ok := rl.attempts.Get(rateKey(ip, username))
	if !ok {
		return true, 0
	}
	if !record.lockedUntil.IsZero() && now.Before(record.lockedUntil) {
		return false, record.lockedUntil.Sub(now)
	}
	if now.Sub(record.firstAttempt) > rl.windowDuration || record.count < rl.maxAttempts {
		return true, 0
	}
	return false, rl.lockoutDuration
}

// RecordFailure counts a failed attempt and reports whether it triggered a
// lockout.
func (rl *RateLimiter) RecordFailure(ip, username string) (bool, time.Duration) {
	key := rateKey(ip, username)
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record, ok := rl.attempts.Get(key)
	if !ok || now.Sub(record.firstAttempt) > rl.windowDuration {
		record = &attemptRecord{firstAttempt: now}
	}
	record.count++

	locked := record.count >= rl.maxAttempts
	if locked {
		record.lockedUntil = now.Add(rl.lockoutDuration)
	}
	rl.attempts.Add(key, record)

	if locked {
		return true, rl.lockoutDuration
	}
	return false, 0
}

func (rl *RateLimiter) RecordSuccess(ip, username string) {
	rl.mu.Lock()
	rl.attempts.Remove(rateKey(ip, username))
	rl.mu.Unlock()
}

// RateLimitMiddleware rejects login posts for locked IP and username pairs.
func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		username := c.PostForm("username")
		if username == "" {
			c.Next()
			return
		}

		allowed, retryAfter := rl.Allow(c.ClientIP(), username)
		if !allowed {
			c.Header("Retry-After", retryAfter.Round(time.Second).String())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many login attempts",
				"retry_after": retryAfter.Round(time.Second).String(),
			})
			return
		}
		c.Next()
	}
}
