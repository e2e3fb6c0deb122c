package repository

import (
	"context"
	"database/sql"
	"errors"

	"gigachat/backend/internal/db"
	"gigachat/backend/internal/session/domain"
)

const sessionColumns = `id, account_id, device_id, device_info, ip_address, active, created_at, expires_at`

// PostgresRepository persists sessions. It runs against either a *sql.DB or a
// transaction, so callers can compose it with other repositories atomically.
type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a session repository backed by the given db.
func NewPostgresRepository(dbtx db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: dbtx}
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

// CountActive returns the number of active, unexpired sessions for the account.
func (r *PostgresRepository) CountActive(ctx context.Context, accountID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*) FROM sessions
		WHERE account_id = $1 AND active AND expires_at > now()`, accountID).Scan(&n)
	return n, err
}

// OldestActiveForUpdate returns the oldest active session for the account with
// its row locked, or nil when there is none. Only meaningful inside a
// transaction.
func (r *PostgresRepository) OldestActiveForUpdate(ctx context.Context, accountID string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE account_id = $1 AND active AND expires_at > now()
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE`, accountID)
	return scanSession(row)
}

// ListActiveByAccount returns the account's active, unexpired sessions, oldest
// first. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListActiveByAccount(ctx context.Context, accountID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE account_id = $1 AND active AND expires_at > now()
		ORDER BY created_at ASC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		var s domain.Session
		var deviceInfo []byte
		if err := rows.Scan(&s.ID, &s.AccountID, &s.DeviceID, &deviceInfo, &s.IPAddress, &s.Active, &s.CreatedAt, &s.ExpiresAt); err != nil {
			return nil, err
		}
		s.DeviceInfo = deviceInfo
		out = append(out, &s)
	}
	return out, rows.Err()
}

// Create persists the session to the database. The session must have ID set.
// The ip_address column is NOT NULL DEFAULT '', so an empty IP is written as
// '' rather than NULL.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	var deviceInfo any
	if len(s.DeviceInfo) > 0 {
		deviceInfo = []byte(s.DeviceInfo)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, account_id, device_id, device_info, ip_address, active, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.AccountID, s.DeviceID, deviceInfo,
		s.IPAddress, s.Active, s.CreatedAt, s.ExpiresAt,
	)
	return err
}

// Deactivate marks the session with the given id as inactive.
func (r *PostgresRepository) Deactivate(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET active = false WHERE id = $1`, id)
	return err
}

// DeactivateByIDAndAccount deactivates the session only when it belongs to the
// account, and reports whether a row was updated.
func (r *PostgresRepository) DeactivateByIDAndAccount(ctx context.Context, id, accountID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET active = false
		WHERE id = $1 AND account_id = $2 AND active`, id, accountID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeactivateOthersByAccount deactivates every active session of the account
// except keepID.
func (r *PostgresRepository) DeactivateOthersByAccount(ctx context.Context, accountID, keepID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET active = false
		WHERE account_id = $1 AND id <> $2 AND active`, accountID, keepID)
	return err
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var s domain.Session
	var deviceInfo []byte
	err := row.Scan(&s.ID, &s.AccountID, &s.DeviceID, &deviceInfo, &s.IPAddress, &s.Active, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.DeviceInfo = deviceInfo
	return &s, nil
}
