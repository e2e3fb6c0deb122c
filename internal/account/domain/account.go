package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is the coarse authorization level attached to an account. The set is
// closed: roles map to permissions statically at compile time.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// Account is a registered user identity together with its credential and
// lockout state.
type Account struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Active       bool
	Locked       bool

	// Lockout bookkeeping. LastFailedLogin anchors the failure-counting
	// window; LockoutUntil is set only while the account is locked.
	FailedLoginAttempts int
	LastFailedLogin     *time.Time
	LockoutUntil        *time.Time

	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the structural invariants of the account.
func (a *Account) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("account: id is required")
	}
	if a.Email == "" || !strings.Contains(a.Email, "@") {
		return fmt.Errorf("account: valid email is required")
	}
	if a.Username == "" {
		return fmt.Errorf("account: username is required")
	}
	if a.PasswordHash == "" {
		return fmt.Errorf("account: password hash is required")
	}
	if !a.Role.Valid() {
		return fmt.Errorf("account: unknown role %q", a.Role)
	}
	return nil
}
