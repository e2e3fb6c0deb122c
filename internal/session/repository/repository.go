package repository

import (
	"context"

	"gigachat/backend/internal/session/domain"
)

// Repository defines persistence for sessions.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	CountActive(ctx context.Context, accountID string) (int, error)
	// OldestActiveForUpdate returns the account's oldest active session with
	// its row locked, or nil when the account has none. Used inside the
	// session-creation transaction to evict under the concurrency cap.
	OldestActiveForUpdate(ctx context.Context, accountID string) (*domain.Session, error)
	ListActiveByAccount(ctx context.Context, accountID string) ([]*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	Deactivate(ctx context.Context, id string) error
	// DeactivateByIDAndAccount deactivates the session only when it belongs to
	// accountID. It reports whether a row was updated.
	DeactivateByIDAndAccount(ctx context.Context, id, accountID string) (bool, error)
	// DeactivateOthersByAccount deactivates every active session of the
	// account except keepID. Used after a password change.
	DeactivateOthersByAccount(ctx context.Context, accountID, keepID string) error
}
