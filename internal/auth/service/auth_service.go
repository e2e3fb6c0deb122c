// Package service implements the authentication flows: registration, login
// with lockout accounting, token-based identity resolution, logout, and
// password change.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	accdomain "gigachat/backend/internal/account/domain"
	"gigachat/backend/internal/audit"
	"gigachat/backend/internal/lockout"
	"gigachat/backend/internal/password"
	"gigachat/backend/internal/security"
	sessdomain "gigachat/backend/internal/session/domain"
	sessionservice "gigachat/backend/internal/session/service"
	"gigachat/backend/internal/store"
	"gigachat/backend/internal/telemetry"
)

// Sentinel errors for the auth service; the transport layer maps them to codes.
var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAccountLocked          = errors.New("account temporarily locked")
	ErrAccountInactive        = errors.New("account is inactive")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrUsernameTaken          = errors.New("username already taken")
)

// PolicyViolationError reports why a password failed the policy. The reason is
// safe to show to the end user.
type PolicyViolationError struct {
	Reason string
}

func (e *PolicyViolationError) Error() string { return e.Reason }

// LoginResult holds the outcome of a successful login.
type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	Account     *accdomain.Account
	Session     *sessdomain.Session
}

// AuthService implements register, login, logout, and password change.
type AuthService struct {
	store    store.Store
	hasher   *security.Hasher
	tokens   *security.TokenProvider
	policy   *password.Policy
	lockout  *lockout.Policy
	sessions *sessionservice.Manager
	auditl   audit.AuditLogger
	metrics  *telemetry.AuthMetrics
	logger   *slog.Logger

	accessTTL time.Duration
}

// NewAuthService returns an AuthService with the given dependencies.
// auditl, metrics, and logger may be nil.
func NewAuthService(
	st store.Store,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	policy *password.Policy,
	lockoutPolicy *lockout.Policy,
	sessions *sessionservice.Manager,
	auditl audit.AuditLogger,
	metrics *telemetry.AuthMetrics,
	logger *slog.Logger,
	accessTTL time.Duration,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		store:     st,
		hasher:    hasher,
		tokens:    tokens,
		policy:    policy,
		lockout:   lockoutPolicy,
		sessions:  sessions,
		auditl:    auditl,
		metrics:   metrics,
		logger:    logger,
		accessTTL: accessTTL,
	}
}

// Register creates an account with the given email, username, and password.
func (s *AuthService) Register(ctx context.Context, email, username, plaintext string) (*accdomain.Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if username == "" {
		return nil, errors.New("username is required")
	}

	if ok, reason := s.policy.Validate(ctx, plaintext); !ok {
		return nil, &PolicyViolationError{Reason: reason}
	}

	if existing, err := s.store.Repos().Accounts.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	if existing, err := s.store.Repos().Accounts.GetByUsername(ctx, username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrUsernameTaken
	}

	hashed, err := s.hasher.Hash(plaintext)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooLong) {
			return nil, &PolicyViolationError{Reason: "Password is too long"}
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	account := &accdomain.Account{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		Active:       true,
		Role:         accdomain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Repos().Accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	s.metrics.Registration(ctx)
	if s.auditl != nil {
		s.auditl.LogEvent(ctx, account.ID, audit.ActionRegister, "account", "")
	}
	s.logger.InfoContext(ctx, "account registered", "account_id", account.ID)
	return account, nil
}

// Login authenticates with email and password, opens a session, and returns an
// access token bound to it. Credential checks and lockout accounting run in
// one transaction holding the account row, so concurrent attempts against the
// same account serialize and every failure is counted exactly once.
func (s *AuthService) Login(ctx context.Context, email, plaintext, deviceID string, deviceInfo json.RawMessage, ipAddress string) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || plaintext == "" {
		return nil, ErrInvalidCredentials
	}

	var (
		account  *accdomain.Account
		loginErr error
		locked   bool
	)
	err := s.store.RunTx(ctx, func(ctx context.Context, r store.Repos) error {
		now := time.Now().UTC()

		a, err := r.Accounts.GetByEmailForUpdate(ctx, email)
		if err != nil {
			return err
		}
		if a == nil {
			// Burn a hash comparison so unknown emails are not distinguishable
			// from wrong passwords by response time.
			_ = s.hasher.Compare("$2a$12$RrkEHfNmNzAyRCW0mOUS5uSp79jcxRZssqYArpcUDTkG0rEVDzfXu", plaintext)
			loginErr = ErrInvalidCredentials
			return nil
		}
		account = a

		if !a.Active {
			loginErr = ErrAccountInactive
			return nil
		}
		if s.lockout.CheckAndClear(a, now) {
			loginErr = ErrAccountLocked
			return nil
		}

		if s.hasher.Compare(a.PasswordHash, plaintext) != nil {
			if s.lockout.RecordFailure(a, now) {
				locked = true
				loginErr = ErrAccountLocked
			} else {
				loginErr = ErrInvalidCredentials
			}
		} else {
			s.lockout.RecordSuccess(a)
		}
		// Commit the updated lockout state even when the login itself failed.
		return r.Accounts.UpdateLoginState(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	if loginErr != nil {
		s.metrics.LoginFailure(ctx)
		accountID := ""
		if account != nil {
			accountID = account.ID
		}
		if s.auditl != nil {
			s.auditl.LogEvent(ctx, accountID, audit.ActionLoginFailure, "account", "")
		}
		if locked {
			s.metrics.Lockout(ctx)
			if s.auditl != nil {
				s.auditl.LogEvent(ctx, accountID, audit.ActionAccountLocked, "account", "")
			}
			s.logger.WarnContext(ctx, "account locked after repeated failures", "account_id", accountID)
		}
		return nil, loginErr
	}

	sess, err := s.sessions.Create(ctx, account.ID, deviceID, deviceInfo, ipAddress)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(security.Claims{
		"sub":  account.ID,
		"sid":  sess.ID,
		"role": string(account.Role),
	}, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.metrics.LoginSuccess(ctx)
	if s.auditl != nil {
		s.auditl.LogEvent(ctx, account.ID, audit.ActionLoginSuccess, "account", sess.ID)
	}
	s.logger.InfoContext(ctx, "login", "account_id", account.ID, "session_id", sess.ID)

	return &LoginResult{
		AccessToken: token,
		ExpiresAt:   time.Now().UTC().Add(s.accessTTL),
		Account:     account,
		Session:     sess,
	}, nil
}

// CurrentAccount resolves an access token to its account and session. A token
// whose session was terminated or evicted no longer authenticates, even if the
// token itself has not expired.
func (s *AuthService) CurrentAccount(ctx context.Context, token string) (*accdomain.Account, *sessdomain.Session, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, nil, security.ErrInvalidToken
	}

	sess, err := s.sessions.GetActive(ctx, claims.Subject(), claims.SessionID())
	if err != nil {
		if errors.Is(err, sessionservice.ErrSessionNotFound) {
			return nil, nil, security.ErrInvalidToken
		}
		return nil, nil, err
	}

	account, err := s.store.Repos().Accounts.GetByID(ctx, claims.Subject())
	if err != nil {
		return nil, nil, err
	}
	if account == nil || !account.Active {
		return nil, nil, security.ErrInvalidToken
	}
	if s.lockout.CheckAndClear(account, time.Now().UTC()) {
		return nil, nil, ErrAccountLocked
	}
	return account, sess, nil
}

// ValidateSession reports whether the session is alive and its account can
// still authenticate. Used by the transport layer to reject tokens whose
// session was terminated or whose account was locked or deactivated after
// issue.
func (s *AuthService) ValidateSession(ctx context.Context, accountID, sessionID string) (bool, error) {
	if _, err := s.sessions.GetActive(ctx, accountID, sessionID); err != nil {
		if errors.Is(err, sessionservice.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	account, err := s.store.Repos().Accounts.GetByID(ctx, accountID)
	if err != nil {
		return false, err
	}
	if account == nil || !account.Active {
		return false, nil
	}
	if s.lockout.CheckAndClear(account, time.Now().UTC()) {
		return false, nil
	}
	return true, nil
}

// Logout terminates the session the token is bound to. Logging out with an
// invalid token or an already-terminated session is a no-op, not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil
	}
	err = s.sessions.Terminate(ctx, claims.Subject(), claims.SessionID())
	if errors.Is(err, sessionservice.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if s.auditl != nil {
		s.auditl.LogEvent(ctx, claims.Subject(), audit.ActionLogout, "session", claims.SessionID())
	}
	return nil
}

// ChangePassword verifies the current password, applies the policy to the new
// one, swaps the hash, and terminates every other session of the account so
// stolen sessions die with the old password. keepSessionID is the caller's own
// session and stays active.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, keepSessionID, currentPassword, newPassword string) error {
	account, err := s.store.Repos().Accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil || !account.Active {
		return ErrInvalidCredentials
	}
	if s.hasher.Compare(account.PasswordHash, currentPassword) != nil {
		return ErrInvalidCredentials
	}
	if ok, reason := s.policy.Validate(ctx, newPassword); !ok {
		return &PolicyViolationError{Reason: reason}
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooLong) {
			return &PolicyViolationError{Reason: "Password is too long"}
		}
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.store.RunTx(ctx, func(ctx context.Context, r store.Repos) error {
		if err := r.Accounts.UpdatePasswordHash(ctx, accountID, hashed); err != nil {
			return err
		}
		return r.Sessions.DeactivateOthersByAccount(ctx, accountID, keepSessionID)
	})
	if err != nil {
		return err
	}

	if s.auditl != nil {
		s.auditl.LogEvent(ctx, accountID, audit.ActionPasswordChanged, "account", "")
	}
	s.logger.InfoContext(ctx, "password changed", "account_id", accountID)
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return errors.New("invalid email format")
	}
	return nil
}
