// Package lockout implements failed-login accounting: a sliding failure
// window, a lock threshold, and timed automatic unlock. It mutates account
// state only; persistence is the caller's job, inside whatever transaction
// holds the account row.
package lockout

import (
	"time"

	"gigachat/backend/internal/account/domain"
)

// Config holds the lockout tuning knobs.
type Config struct {
	// Threshold is the number of failures inside Window that triggers a lock.
	Threshold int
	// Window is how far back failures count toward the threshold.
	Window time.Duration
	// Duration is how long a triggered lock lasts.
	Duration time.Duration
}

// Policy applies lockout accounting to accounts.
type Policy struct {
	cfg Config
}

// NewPolicy returns a Policy for cfg. Zero or negative fields fall back to
// five failures, a fifteen-minute window, and a thirty-minute lock.
func NewPolicy(cfg Config) *Policy {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 30 * time.Minute
	}
	return &Policy{cfg: cfg}
}

// CheckAndClear reports whether a is locked at now. An expired lock is
// cleared in place (and the failure counter reset) before reporting, so a
// caller that persists a afterwards also persists the unlock.
func (p *Policy) CheckAndClear(a *domain.Account, now time.Time) bool {
	if !a.Locked {
		return false
	}
	if a.LockoutUntil != nil && !now.Before(*a.LockoutUntil) {
		a.Locked = false
		a.LockoutUntil = nil
		a.FailedLoginAttempts = 0
		a.LastFailedLogin = nil
		return false
	}
	return true
}

// RecordFailure registers a failed attempt at now and returns true when the
// attempt tripped the lock. Failures older than the window do not count: the
// counter restarts from this attempt.
func (p *Policy) RecordFailure(a *domain.Account, now time.Time) bool {
	if a.LastFailedLogin != nil && now.Sub(*a.LastFailedLogin) > p.cfg.Window {
		a.FailedLoginAttempts = 0
	}
	a.FailedLoginAttempts++
	t := now
	a.LastFailedLogin = &t

	if a.FailedLoginAttempts >= p.cfg.Threshold {
		a.Locked = true
		until := now.Add(p.cfg.Duration)
		a.LockoutUntil = &until
		return true
	}
	return false
}

// RecordSuccess clears all failure state after a successful login.
func (p *Policy) RecordSuccess(a *domain.Account) {
	a.FailedLoginAttempts = 0
	a.LastFailedLogin = nil
	a.Locked = false
	a.LockoutUntil = nil
}
