package repository

import (
	"context"

	"gigachat/backend/internal/account/domain"
)

// Repository defines persistence for accounts.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	// GetByEmailForUpdate locks the account row for the remainder of the
	// surrounding transaction so lockout counters update without races.
	GetByEmailForUpdate(ctx context.Context, email string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
	// UpdateLoginState persists the lockout fields (failed attempts, window
	// anchor, locked flag, lockout deadline) after a login attempt.
	UpdateLoginState(ctx context.Context, a *domain.Account) error
	UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error
}
