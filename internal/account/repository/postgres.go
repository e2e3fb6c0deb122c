package repository

import (
	"context"
	"database/sql"
	"errors"

	"gigachat/backend/internal/account/domain"
	"gigachat/backend/internal/db"
)

const accountColumns = `id, email, username, password_hash, active, locked,
	failed_login_attempts, last_failed_login, lockout_until, role, created_at, updated_at`

// PostgresRepository persists accounts. It runs against either a *sql.DB or a
// transaction, so callers can compose it with other repositories atomically.
type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an account repository backed by the given db.
func NewPostgresRepository(dbtx db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: dbtx}
}

// GetByID returns the account for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetByEmail returns the account for email, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	return scanAccount(row)
}

// GetByEmailForUpdate is GetByEmail with a row lock. Only meaningful inside a
// transaction; outside one the lock releases immediately.
func (r *PostgresRepository) GetByEmailForUpdate(ctx context.Context, email string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1 FOR UPDATE`, email)
	return scanAccount(row)
}

// GetByUsername returns the account for username, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
	return scanAccount(row)
}

// Create persists the account. The account must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, username, password_hash, active, locked,
			failed_login_attempts, last_failed_login, lockout_until, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.Email, a.Username, a.PasswordHash, a.Active, a.Locked,
		a.FailedLoginAttempts, a.LastFailedLogin, a.LockoutUntil, string(a.Role), a.CreatedAt, a.UpdatedAt,
	)
	return err
}

// UpdateLoginState writes the lockout fields for the account with a.ID.
func (r *PostgresRepository) UpdateLoginState(ctx context.Context, a *domain.Account) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET locked = $2, failed_login_attempts = $3, last_failed_login = $4,
			lockout_until = $5, updated_at = now()
		WHERE id = $1`,
		a.ID, a.Locked, a.FailedLoginAttempts, a.LastFailedLogin, a.LockoutUntil,
	)
	return err
}

// UpdatePasswordHash replaces the password hash for the account with id.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = now() WHERE id = $1`,
		id, passwordHash,
	)
	return err
}

func scanAccount(row *sql.Row) (*domain.Account, error) {
	var a domain.Account
	var role string
	err := row.Scan(
		&a.ID, &a.Email, &a.Username, &a.PasswordHash, &a.Active, &a.Locked,
		&a.FailedLoginAttempts, &a.LastFailedLogin, &a.LockoutUntil, &role, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.Role = domain.Role(role)
	return &a, nil
}
