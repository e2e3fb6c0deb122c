package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gigachat/backend/internal/audit"
	"gigachat/backend/internal/session/domain"
	"gigachat/backend/internal/store"
)

// ErrSessionNotFound is returned when a session does not exist, is inactive,
// or belongs to another account.
var ErrSessionNotFound = errors.New("session not found")

// Config holds the session manager tuning knobs.
type Config struct {
	// MaxConcurrent caps active sessions per account. Creating a session at
	// the cap evicts the account's oldest active session.
	MaxConcurrent int
	// TTL is the lifetime of a new session.
	TTL time.Duration
}

// Manager creates, lists, and terminates sessions.
type Manager struct {
	store  store.Store
	cfg    Config
	auditl audit.AuditLogger
	logger *slog.Logger
}

// NewManager returns a session Manager. auditl and logger may be nil.
func NewManager(st store.Store, cfg Config, auditl audit.AuditLogger, logger *slog.Logger) *Manager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 720 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: st, cfg: cfg, auditl: auditl, logger: logger}
}

// Create opens a session for the account. Count and eviction run in one
// transaction, so two concurrent logins cannot both slip past the cap.
func (m *Manager) Create(ctx context.Context, accountID, deviceID string, deviceInfo json.RawMessage, ipAddress string) (*domain.Session, error) {
	now := time.Now().UTC()
	s := &domain.Session{
		ID:         uuid.New().String(),
		AccountID:  accountID,
		DeviceID:   deviceID,
		DeviceInfo: deviceInfo,
		IPAddress:  ipAddress,
		Active:     true,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.cfg.TTL),
	}

	var evictedID string
	err := m.store.RunTx(ctx, func(ctx context.Context, r store.Repos) error {
		n, err := r.Sessions.CountActive(ctx, accountID)
		if err != nil {
			return fmt.Errorf("count active sessions: %w", err)
		}
		if n >= m.cfg.MaxConcurrent {
			oldest, err := r.Sessions.OldestActiveForUpdate(ctx, accountID)
			if err != nil {
				return fmt.Errorf("find oldest session: %w", err)
			}
			if oldest != nil {
				if err := r.Sessions.Deactivate(ctx, oldest.ID); err != nil {
					return fmt.Errorf("evict session: %w", err)
				}
				evictedID = oldest.ID
			}
		}
		if err := r.Sessions.Create(ctx, s); err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if evictedID != "" {
		m.logger.InfoContext(ctx, "evicted oldest session at concurrency cap",
			"account_id", accountID, "session_id", evictedID)
		if m.auditl != nil {
			m.auditl.LogEvent(ctx, accountID, audit.ActionSessionEvicted, "session", evictedID)
		}
	}
	return s, nil
}

// GetActive returns the session when it exists, belongs to accountID, is
// active, and has not expired. Otherwise ErrSessionNotFound.
func (m *Manager) GetActive(ctx context.Context, accountID, sessionID string) (*domain.Session, error) {
	s, err := m.store.Repos().Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s == nil || s.AccountID != accountID || !s.Active || s.Expired(time.Now().UTC()) {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// ListActive returns the account's active sessions, oldest first.
func (m *Manager) ListActive(ctx context.Context, accountID string) ([]*domain.Session, error) {
	return m.store.Repos().Sessions.ListActiveByAccount(ctx, accountID)
}

// Terminate deactivates the session if it belongs to the account. Terminating
// a session of another account reports ErrSessionNotFound, not a permission
// error, so session IDs do not leak.
func (m *Manager) Terminate(ctx context.Context, accountID, sessionID string) error {
	ok, err := m.store.Repos().Sessions.DeactivateByIDAndAccount(ctx, sessionID, accountID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}
