// Package middleware provides the HTTP middleware for Galleria:
// session auth, permission gates, API key checks, rate limiting, and
// the request hardening applied to every route.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const maxLockout = 24 * time.Hour

// LoginProtection throttles the login endpoint two ways: a per-IP
// request limit in front of the handler, and per-account lockout
// bookkeeping the handler consults after a bad password.
type LoginProtection struct {
	ipLimiters *bucketMap[string]

	mu       sync.RWMutex
	accounts map[string]*accountState

	maxFailures int
	lockoutBase time.Duration // doubles with every repeat lockout
	window      time.Duration
}

// accountState tracks failures for one email address.
type accountState struct {
	failures    int
	windowStart time.Time
	lockedUntil time.Time
	lockouts    int
}

// LoginProtectionConfig holds the login protection knobs. Zero values
// fall back to the defaults.
type LoginProtectionConfig struct {
	// IPRateLimit is login requests per second per IP.
	IPRateLimit float64
	// IPBurst is the burst allowance on top of IPRateLimit.
	IPBurst int
	// MaxFailedAttempts locks the account when reached inside the window.
	MaxFailedAttempts int
	// LockoutDuration is the first lockout length; repeats double it.
	LockoutDuration time.Duration
	// AttemptWindow bounds how long failures count against an account.
	AttemptWindow time.Duration
}

// DefaultLoginProtectionConfig returns the production defaults: one
// request per two seconds per IP with a burst of five, and a 15 minute
// lockout after five failures in 15 minutes.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5,
		IPBurst:           5,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
	}
}

// NewLoginProtection builds the protection state and starts its
// cleanup loop.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	def := DefaultLoginProtectionConfig()
	if cfg.IPRateLimit <= 0 {
		cfg.IPRateLimit = def.IPRateLimit
	}
	if cfg.IPBurst <= 0 {
		cfg.IPBurst = def.IPBurst
	}
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = def.MaxFailedAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = def.AttemptWindow
	}

	lp := &LoginProtection{
		ipLimiters:  newBucketMap[string](cfg.IPRateLimit, cfg.IPBurst),
		accounts:    make(map[string]*accountState),
		maxFailures: cfg.MaxFailedAttempts,
		lockoutBase: cfg.LockoutDuration,
		window:      cfg.AttemptWindow,
	}
	go lp.cleanupLoop()
	return lp
}

// CheckIPRateLimit reports whether a login request from ip may proceed.
func (lp *LoginProtection) CheckIPRateLimit(ip string) bool {
	return lp.ipLimiters.get(ip).Allow()
}

// IsAccountLocked reports whether the account is locked and for how
// much longer.
func (lp *LoginProtection) IsAccountLocked(email string) (bool, time.Duration) {
	lp.mu.RLock()
	s, ok := lp.accounts[email]
	lp.mu.RUnlock()

	if ok && time.Now().Before(s.lockedUntil) {
		return true, time.Until(s.lockedUntil)
	}
	return false, 0
}

// RecordFailedAttempt counts one failure against the account. When the
// failure count reaches the limit inside the window, the account locks
// and the lock duration is returned. Each repeat lockout doubles the
// duration up to 24 hours.
func (lp *LoginProtection) RecordFailedAttempt(email string) (bool, time.Duration) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	now := time.Now()
	s, ok := lp.accounts[email]
	if !ok {
		lp.accounts[email] = &accountState{failures: 1, windowStart: now}
		return false, 0
	}

	// Stale window: start counting fresh but keep the lockout history
	// so repeat offenders still escalate.
	if now.Sub(s.windowStart) > lp.window {
		s.failures = 1
		s.windowStart = now
		return false, 0
	}

	s.failures++
	if s.failures < lp.maxFailures {
		slog.Debug("failed login recorded", "email", email, "failures", s.failures)
		return false, 0
	}

	lock := lp.lockoutBase
	for i := 0; i < s.lockouts && lock < maxLockout; i++ {
		lock *= 2
	}
	if lock > maxLockout {
		lock = maxLockout
	}

	s.lockedUntil = now.Add(lock)
	s.lockouts++
	s.failures = 0

	slog.Warn("account locked after repeated failures",
		"email", email,
		"lockouts", s.lockouts,
		"duration", lock,
	)
	return true, lock
}

// RecordSuccessfulLogin forgets the account's failure history.
func (lp *LoginProtection) RecordSuccessfulLogin(email string) {
	lp.mu.Lock()
	delete(lp.accounts, email)
	lp.mu.Unlock()
}

// GetRemainingAttempts returns how many more failures the account can
// absorb before locking.
func (lp *LoginProtection) GetRemainingAttempts(email string) int {
	lp.mu.RLock()
	s, ok := lp.accounts[email]
	lp.mu.RUnlock()

	if !ok || time.Since(s.windowStart) > lp.window {
		return lp.maxFailures
	}
	if left := lp.maxFailures - s.failures; left > 0 {
		return left
	}
	return 0
}

func (lp *LoginProtection) cleanupLoop() {
	t := time.NewTicker(10 * time.Minute)
	defer t.Stop()
	for range t.C {
		lp.dropStale()
	}
}

func (lp *LoginProtection) dropStale() {
	if lp.ipLimiters.resetIfOver(10000) {
		slog.Info("cleared login IP limiters due to size")
	}

	now := time.Now()
	lp.mu.Lock()
	for email, s := range lp.accounts {
		if now.After(s.lockedUntil) && now.Sub(s.windowStart) > lp.window {
			delete(lp.accounts, email)
		}
	}
	lp.mu.Unlock()
}

// Middleware rate-limits login POSTs per IP. Account lockout is
// enforced inside the login handler where the email is known.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIP(r)
			if !lp.CheckIPRateLimit(ip) {
				slog.Warn("login rate limit exceeded", "ip", ip)
				WriteAPIError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many login attempts. Please wait and try again.", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP resolves the caller's address, preferring reverse proxy
// headers over RemoteAddr.
func ClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		// Keep the first hop when the header lists a chain.
		first, _, _ := strings.Cut(ip, ",")
		return strings.TrimSpace(first)
	}
	return r.RemoteAddr
}
