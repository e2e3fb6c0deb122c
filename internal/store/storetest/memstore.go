// Package storetest provides an in-memory Store for service tests.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	accdomain "gigachat/backend/internal/account/domain"
	auditdomain "gigachat/backend/internal/audit/domain"
	sessdomain "gigachat/backend/internal/session/domain"
	"gigachat/backend/internal/store"
)

// MemStore implements store.Store entirely in memory. RunTx serializes on one
// mutex, which mirrors the per-account row locking the real store relies on.
type MemStore struct {
	mu       sync.Mutex
	Accounts *MemAccountRepo
	Sessions *MemSessionRepo
	Audit    *MemAuditRepo
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		Accounts: &MemAccountRepo{byID: map[string]*accdomain.Account{}},
		Sessions: &MemSessionRepo{byID: map[string]*sessdomain.Session{}},
		Audit:    &MemAuditRepo{},
	}
}

func (m *MemStore) Repos() store.Repos {
	return store.Repos{Accounts: m.Accounts, Sessions: m.Sessions, Audit: m.Audit}
}

func (m *MemStore) RunTx(ctx context.Context, fn func(ctx context.Context, r store.Repos) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, m.Repos())
}

// MemAccountRepo is an in-memory account repository. Reads return copies, so
// callers must write mutations back through UpdateLoginState, as with the real
// repository.
type MemAccountRepo struct {
	mu   sync.Mutex
	byID map[string]*accdomain.Account

	CreateErr error
	GetErr    error
}

// Seed stores a copy of a, overwriting any account with the same ID.
func (r *MemAccountRepo) Seed(a *accdomain.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.byID[a.ID] = &cp
}

// Get returns the stored account for direct inspection in assertions.
func (r *MemAccountRepo) Get(id string) *accdomain.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id]
}

func (r *MemAccountRepo) GetByID(ctx context.Context, id string) (*accdomain.Account, error) {
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyAccount(r.byID[id]), nil
}

func (r *MemAccountRepo) GetByEmail(ctx context.Context, email string) (*accdomain.Account, error) {
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Email == email {
			return copyAccount(a), nil
		}
	}
	return nil, nil
}

func (r *MemAccountRepo) GetByEmailForUpdate(ctx context.Context, email string) (*accdomain.Account, error) {
	return r.GetByEmail(ctx, email)
}

func (r *MemAccountRepo) GetByUsername(ctx context.Context, username string) (*accdomain.Account, error) {
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Username == username {
			return copyAccount(a), nil
		}
	}
	return nil, nil
}

func (r *MemAccountRepo) Create(ctx context.Context, a *accdomain.Account) error {
	if r.CreateErr != nil {
		return r.CreateErr
	}
	r.Seed(a)
	return nil
}

func (r *MemAccountRepo) UpdateLoginState(ctx context.Context, a *accdomain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[a.ID]
	if !ok {
		return nil
	}
	stored.Locked = a.Locked
	stored.FailedLoginAttempts = a.FailedLoginAttempts
	stored.LastFailedLogin = copyTime(a.LastFailedLogin)
	stored.LockoutUntil = copyTime(a.LockoutUntil)
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemAccountRepo) UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.byID[id]; ok {
		stored.PasswordHash = passwordHash
		stored.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// MemSessionRepo is an in-memory session repository.
type MemSessionRepo struct {
	mu   sync.Mutex
	byID map[string]*sessdomain.Session

	CreateErr error
}

// Seed stores a copy of s.
func (r *MemSessionRepo) Seed(s *sessdomain.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.byID[s.ID] = &cp
}

// Get returns the stored session for direct inspection in assertions.
func (r *MemSessionRepo) Get(id string) *sessdomain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id]
}

func (r *MemSessionRepo) GetByID(ctx context.Context, id string) (*sessdomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *MemSessionRepo) CountActive(ctx context.Context, accountID string) (int, error) {
	return len(r.activeSorted(accountID)), nil
}

func (r *MemSessionRepo) OldestActiveForUpdate(ctx context.Context, accountID string) (*sessdomain.Session, error) {
	active := r.activeSorted(accountID)
	if len(active) == 0 {
		return nil, nil
	}
	cp := *active[0]
	return &cp, nil
}

func (r *MemSessionRepo) ListActiveByAccount(ctx context.Context, accountID string) ([]*sessdomain.Session, error) {
	active := r.activeSorted(accountID)
	out := make([]*sessdomain.Session, len(active))
	for i, s := range active {
		cp := *s
		out[i] = &cp
	}
	return out, nil
}

func (r *MemSessionRepo) Create(ctx context.Context, s *sessdomain.Session) error {
	if r.CreateErr != nil {
		return r.CreateErr
	}
	r.Seed(s)
	return nil
}

func (r *MemSessionRepo) Deactivate(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[id]; ok {
		s.Active = false
	}
	return nil
}

func (r *MemSessionRepo) DeactivateByIDAndAccount(ctx context.Context, id, accountID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok || s.AccountID != accountID || !s.Active {
		return false, nil
	}
	s.Active = false
	return true, nil
}

func (r *MemSessionRepo) DeactivateOthersByAccount(ctx context.Context, accountID, keepID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if s.AccountID == accountID && s.ID != keepID {
			s.Active = false
		}
	}
	return nil
}

func (r *MemSessionRepo) activeSorted(accountID string) []*sessdomain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	var active []*sessdomain.Session
	for _, s := range r.byID {
		if s.AccountID == accountID && s.Active && !s.Expired(now) {
			active = append(active, s)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].ID < active[j].ID
		}
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})
	return active
}

// MemAuditRepo is an in-memory audit repository.
type MemAuditRepo struct {
	mu      sync.Mutex
	Entries []*auditdomain.AuditLog
}

func (r *MemAuditRepo) GetByID(ctx context.Context, id string) (*auditdomain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.Entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (r *MemAuditRepo) ListByAccount(ctx context.Context, accountID string, limit, offset int32) ([]*auditdomain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*auditdomain.AuditLog
	for _, e := range r.Entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *MemAuditRepo) Create(ctx context.Context, a *auditdomain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Entries = append(r.Entries, a)
	return nil
}

// Actions returns the recorded audit actions in order.
func (r *MemAuditRepo) Actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Action
	}
	return out
}

func copyAccount(a *accdomain.Account) *accdomain.Account {
	if a == nil {
		return nil
	}
	cp := *a
	cp.LastFailedLogin = copyTime(a.LastFailedLogin)
	cp.LockoutUntil = copyTime(a.LockoutUntil)
	return &cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
