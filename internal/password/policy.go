// Package password enforces the password policy for registration and password
// changes: structural strength checks plus an optional breach-corpus lookup.
package password

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
)

// BreachChecker reports whether a password appears in a known breach corpus.
type BreachChecker interface {
	// IsBreached returns true when the password is present in the corpus.
	// An error means the corpus was unreachable, not that the password is bad.
	IsBreached(ctx context.Context, password string) (bool, error)
}

// maxLength caps password length so that password plus the server pepper stays
// under bcrypt's 72-byte input limit.
const maxLength = 64

// Policy validates passwords against the configured strength rules and, when a
// breach checker is configured, against known-breached passwords. A failing
// breach-service call downgrades to a skipped check; it never blocks an
// otherwise sound password.
type Policy struct {
	minLength int
	breach    BreachChecker
	logger    *slog.Logger
}

// NewPolicy returns a Policy with the given minimum length. breach may be nil
// to disable the breach check; logger may be nil.
func NewPolicy(minLength int, breach BreachChecker, logger *slog.Logger) *Policy {
	if minLength <= 0 {
		minLength = 12
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{minLength: minLength, breach: breach, logger: logger}
}

// Validate checks password against the policy. It returns (true, ok-message)
// when the password is acceptable, and (false, reason) otherwise. All missing
// character classes are reported in one reason, not just the first.
func (p *Policy) Validate(ctx context.Context, password string) (bool, string) {
	if len(password) < p.minLength {
		return false, fmt.Sprintf("Password must be at least %d characters long", p.minLength)
	}
	if len(password) > maxLength {
		return false, fmt.Sprintf("Password must be at most %d characters long", maxLength)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	var missing []string
	if !hasUpper {
		missing = append(missing, "uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "lowercase letter")
	}
	if !hasDigit {
		missing = append(missing, "number")
	}
	if !hasSpecial {
		missing = append(missing, "special character")
	}
	if len(missing) > 0 {
		return false, "Password must contain at least one " + strings.Join(missing, ", ")
	}

	if p.breach != nil {
		breached, err := p.breach.IsBreached(ctx, password)
		if err != nil {
			// Breach corpus unavailable: skip the check rather than block the caller.
			p.logger.WarnContext(ctx, "breach check unavailable, skipping", "error", err)
		} else if breached {
			return false, "This password has appeared in data breaches. Please choose a different one."
		}
	}

	return true, "Password meets security requirements"
}
