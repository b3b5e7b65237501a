package server

import (
	"sync"
	"time"

	"github.com/lawnchairsociety/battleadvisor/internal/config"
)

// AuthRateLimiter tracks failed API key attempts per client IP and locks
// out repeat offenders with an exponentially growing lockout.
type AuthRateLimiter struct {
	mu           sync.Mutex
	attempts     map[string]*attemptInfo
	maxAttempts  int
	lockout      time.Duration
	maxLockout   time.Duration
	now          func() time.Time
	stopCleanup  chan struct{}
	stopOnce     sync.Once
	cleanupEvery time.Duration
}

type attemptInfo struct {
	failedAttempts int
	lockedUntil    time.Time
	lockoutCount   int
	lastFailure    time.Time
}

// NewAuthRateLimiter creates a rate limiter and starts its cleanup loop.
// Zero values in cfg fall back to 5 attempts, 30s and 300s.
func NewAuthRateLimiter(cfg config.RateLimitConfig) *AuthRateLimiter {
	rl := &AuthRateLimiter{
		attempts:     make(map[string]*attemptInfo),
		maxAttempts:  cfg.MaxAttempts,
		lockout:      time.Duration(cfg.LockoutSeconds) * time.Second,
		maxLockout:   time.Duration(cfg.MaxLockoutSeconds) * time.Second,
		now:          time.Now,
		stopCleanup:  make(chan struct{}),
		cleanupEvery: 5 * time.Minute,
	}

	if rl.maxAttempts <= 0 {
		rl.maxAttempts = 5
	}
	if rl.lockout <= 0 {
		rl.lockout = 30 * time.Second
	}
	if rl.maxLockout <= 0 {
		rl.maxLockout = 300 * time.Second
	}
	if rl.maxLockout < rl.lockout {
		rl.maxLockout = rl.lockout
	}

	go rl.cleanupLoop()

	return rl
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (rl *AuthRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

// IsLocked reports whether ip is locked out and for how much longer.
func (rl *AuthRateLimiter) IsLocked(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	info, exists := rl.attempts[ip]
	if !exists {
		return false, 0
	}

	if remaining := info.lockedUntil.Sub(rl.now()); remaining > 0 {
		return true, remaining
	}
	return false, 0
}

// RecordFailure records a failed attempt for ip. Returns true with the
// remaining lockout if ip is now locked out.
func (rl *AuthRateLimiter) RecordFailure(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	info, exists := rl.attempts[ip]
	if !exists {
		info = &attemptInfo{}
		rl.attempts[ip] = info
	}
	info.lastFailure = now

	// Attempts while locked don't count toward the next lockout
	if remaining := info.lockedUntil.Sub(now); remaining > 0 {
		return true, remaining
	}

	info.failedAttempts++
	if info.failedAttempts < rl.maxAttempts {
		return false, 0
	}

	info.lockoutCount++
	info.failedAttempts = 0
	duration := rl.lockoutFor(info.lockoutCount)
	info.lockedUntil = now.Add(duration)
	return true, duration
}

// lockoutFor returns the lockout for the nth lockout: the base duration
// doubled n-1 times, capped at the maximum.
func (rl *AuthRateLimiter) lockoutFor(n int) time.Duration {
	d := rl.lockout
	for i := 1; i < n; i++ {
		if d >= rl.maxLockout/2 {
			return rl.maxLockout
		}
		d *= 2
	}
	return min(d, rl.maxLockout)
}

// RecordSuccess clears the failure history of ip.
func (rl *AuthRateLimiter) RecordSuccess(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	delete(rl.attempts, ip)
}

// Attempts returns the failed attempts of ip since its last lockout.
func (rl *AuthRateLimiter) Attempts(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if info, exists := rl.attempts[ip]; exists {
		return info.failedAttempts
	}
	return 0
}

func (rl *AuthRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCleanup:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup forgets IPs that are not locked and have not failed for at least
// the maximum lockout.
func (rl *AuthRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.maxLockout)

	for ip, info := range rl.attempts {
		if info.lockedUntil.Before(now) && info.lastFailure.Before(cutoff) {
			delete(rl.attempts, ip)
		}
	}
}
