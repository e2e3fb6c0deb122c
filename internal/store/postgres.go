package store

import (
	"context"
	"database/sql"

	accountrepo "gigachat/backend/internal/account/repository"
	auditrepo "gigachat/backend/internal/audit/repository"
	"gigachat/backend/internal/db"
	sessionrepo "gigachat/backend/internal/session/repository"
)

// PostgresStore implements Store on top of a *sql.DB.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns a Store backed by the given database handle.
func NewPostgresStore(sqlDB *sql.DB) *PostgresStore {
	return &PostgresStore{db: sqlDB}
}

// Repos returns repositories bound to the connection pool.
func (s *PostgresStore) Repos() Repos {
	return reposFor(s.db)
}

// RunTx runs fn inside a transaction. Row locks taken by the repositories
// (FOR UPDATE reads) hold until commit or rollback.
func (s *PostgresStore) RunTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	return db.WithTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		return fn(ctx, reposFor(tx))
	})
}

func reposFor(dbtx db.DBTX) Repos {
	return Repos{
		Accounts: accountrepo.NewPostgresRepository(dbtx),
		Sessions: sessionrepo.NewPostgresRepository(dbtx),
		Audit:    auditrepo.NewPostgresRepository(dbtx),
	}
}
