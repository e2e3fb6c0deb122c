package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"gigachat/backend/internal/audit"
	"gigachat/backend/internal/store/storetest"
)

func newTestManager(maxConcurrent int) (*Manager, *storetest.MemStore) {
	st := storetest.NewMemStore()
	auditl := audit.NewLogger(st.Audit, nil, nil)
	m := NewManager(st, Config{MaxConcurrent: maxConcurrent, TTL: time.Hour}, auditl, nil)
	return m, st
}

func TestManager_Create(t *testing.T) {
	m, st := newTestManager(3)
	ctx := context.Background()

	info := json.RawMessage(`{"browser":"firefox"}`)
	s, err := m.Create(ctx, "acc-1", "device-1", info, "10.0.0.1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.ID == "" {
		t.Error("session ID should be set")
	}
	if !s.Active {
		t.Error("new session should be active")
	}
	if !s.ExpiresAt.After(s.CreatedAt) {
		t.Errorf("ExpiresAt %v should be after CreatedAt %v", s.ExpiresAt, s.CreatedAt)
	}
	if got := st.Sessions.Get(s.ID); got == nil {
		t.Fatal("session should be persisted")
	}
}

func TestManager_Create_EvictsOldestAtCap(t *testing.T) {
	m, st := newTestManager(3)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		s, err := m.Create(ctx, "acc-1", fmt.Sprintf("device-%d", i), nil, "")
		if err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		// Distinct creation times so the eviction order is deterministic.
		stored := st.Sessions.Get(s.ID)
		stored.CreatedAt = stored.CreatedAt.Add(time.Duration(i) * time.Second)
		ids = append(ids, s.ID)
	}

	s4, err := m.Create(ctx, "acc-1", "device-3", nil, "")
	if err != nil {
		t.Fatalf("Create at cap: %v", err)
	}

	if st.Sessions.Get(ids[0]).Active {
		t.Error("oldest session should be evicted")
	}
	for _, id := range []string{ids[1], ids[2], s4.ID} {
		if !st.Sessions.Get(id).Active {
			t.Errorf("session %s should remain active", id)
		}
	}
	if n, _ := st.Sessions.CountActive(ctx, "acc-1"); n != 3 {
		t.Errorf("active count = %d, want 3", n)
	}

	found := false
	for _, a := range st.Audit.Actions() {
		if a == audit.ActionSessionEvicted {
			found = true
		}
	}
	if !found {
		t.Error("eviction should be audited")
	}
}

func TestManager_Create_CapIsPerAccount(t *testing.T) {
	m, st := newTestManager(1)
	ctx := context.Background()

	s1, err := m.Create(ctx, "acc-1", "device-1", nil, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := m.Create(ctx, "acc-2", "device-1", nil, ""); err != nil {
		t.Fatalf("Create for other account: %v", err)
	}
	if !st.Sessions.Get(s1.ID).Active {
		t.Error("another account's login must not evict this account's session")
	}
}

func TestManager_GetActive(t *testing.T) {
	m, _ := newTestManager(3)
	ctx := context.Background()

	s, err := m.Create(ctx, "acc-1", "device-1", nil, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := m.GetActive(ctx, "acc-1", s.ID)
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if got.ID != s.ID {
		t.Errorf("GetActive ID = %q, want %q", got.ID, s.ID)
	}

	if _, err := m.GetActive(ctx, "acc-2", s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetActive for wrong account: err = %v, want ErrSessionNotFound", err)
	}
	if _, err := m.GetActive(ctx, "acc-1", "no-such-session"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetActive for unknown id: err = %v, want ErrSessionNotFound", err)
	}
}

func TestManager_ListActive(t *testing.T) {
	m, st := newTestManager(5)
	ctx := context.Background()

	s1, _ := m.Create(ctx, "acc-1", "device-1", nil, "")
	s2, _ := m.Create(ctx, "acc-1", "device-2", nil, "")
	st.Sessions.Get(s2.ID).CreatedAt = st.Sessions.Get(s1.ID).CreatedAt.Add(time.Second)
	m.Create(ctx, "acc-2", "device-1", nil, "")

	if err := m.Terminate(ctx, "acc-1", s1.ID); err != nil {
		t.Fatalf("Terminate: %v", err)
	}

	list, err := m.ListActive(ctx, "acc-1")
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len = %d, want 1", len(list))
	}
	if list[0].ID != s2.ID {
		t.Errorf("remaining session = %q, want %q", list[0].ID, s2.ID)
	}
}

func TestManager_Terminate(t *testing.T) {
	m, st := newTestManager(3)
	ctx := context.Background()

	s, _ := m.Create(ctx, "acc-1", "device-1", nil, "")

	if err := m.Terminate(ctx, "acc-1", s.ID); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if st.Sessions.Get(s.ID).Active {
		t.Error("terminated session should be inactive")
	}

	// Already terminated.
	if err := m.Terminate(ctx, "acc-1", s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second Terminate: err = %v, want ErrSessionNotFound", err)
	}
}

func TestManager_Terminate_OtherAccountsSession(t *testing.T) {
	m, st := newTestManager(3)
	ctx := context.Background()

	s, _ := m.Create(ctx, "acc-1", "device-1", nil, "")

	if err := m.Terminate(ctx, "acc-2", s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Terminate by non-owner: err = %v, want ErrSessionNotFound", err)
	}
	if !st.Sessions.Get(s.ID).Active {
		t.Error("session must stay active after a non-owner terminate attempt")
	}
}
