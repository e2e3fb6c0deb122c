// Package store bundles the repositories behind one handle and gives services
// a way to run several repository calls in a single database transaction.
package store

import (
	"context"

	accountrepo "gigachat/backend/internal/account/repository"
	auditrepo "gigachat/backend/internal/audit/repository"
	sessionrepo "gigachat/backend/internal/session/repository"
)

// Repos is the set of repositories a service operates on. Inside RunTx every
// repository is bound to the same transaction.
type Repos struct {
	Accounts accountrepo.Repository
	Sessions sessionrepo.Repository
	Audit    auditrepo.Repository
}

// Store provides repository access and transactional composition.
type Store interface {
	// Repos returns repositories bound to the plain connection pool.
	Repos() Repos
	// RunTx runs fn with repositories bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	RunTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}
