package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"gigachat/backend/internal/audit/domain"
	"gigachat/backend/internal/db"
	"gigachat/backend/internal/db/migrate"
)

// recordingDBTX captures the args passed to ExecContext.
type recordingDBTX struct {
	query string
	args  []any
}

func (r *recordingDBTX) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	r.query = query
	r.args = args
	return fakeResult{}, nil
}

func (r *recordingDBTX) QueryContext(_ context.Context, _ string, _ ...any) (*sql.Rows, error) {
	return nil, nil
}

func (r *recordingDBTX) QueryRowContext(_ context.Context, _ string, _ ...any) *sql.Row {
	return nil
}

type fakeResult struct{}

func (fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (fakeResult) RowsAffected() (int64, error) { return 1, nil }

// The account_id, ip, and metadata columns are NOT NULL DEFAULT ''. A NULL
// parameter bypasses the column default and the insert is rejected, so empty
// fields must go over the wire as plain empty strings, never as NULL.
func TestCreate_EmptyFieldsAreEmptyStrings(t *testing.T) {
	rec := &recordingDBTX{}
	repo := NewPostgresRepository(rec)

	entry := &domain.AuditLog{
		ID:        "log-1",
		AccountID: "",
		Action:    "login_failure",
		Resource:  "account",
		IP:        "",
		Metadata:  "",
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), entry); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if len(rec.args) != 7 {
		t.Fatalf("Create sent %d args, want 7", len(rec.args))
	}
	// id, account_id, action, resource, ip, metadata
	for i, arg := range rec.args[:6] {
		s, ok := arg.(string)
		if !ok {
			t.Errorf("arg %d is %T, want plain string", i, arg)
			continue
		}
		switch i {
		case 1, 4, 5:
			if s != "" {
				t.Errorf("arg %d = %q, want empty string", i, s)
			}
		}
	}
}

func TestCreate_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	if err := migrate.Run(dsn, "up"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sqlDB.Close()

	ctx := context.Background()
	repo := NewPostgresRepository(sqlDB)

	// Empty account_id and metadata, like a failed login for an unknown email.
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		AccountID: "",
		Action:    "login_failure",
		Resource:  "account",
		IP:        "",
		Metadata:  "",
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, entry); err != nil {
		t.Fatalf("Create with empty fields: %v", err)
	}
	defer sqlDB.ExecContext(ctx, `DELETE FROM audit_logs WHERE id = $1`, entry.ID)

	got, err := repo.GetByID(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("GetByID returned nil for a row that was just created")
	}
	if got.AccountID != "" || got.Metadata != "" {
		t.Errorf("round-trip = (%q, %q), want empty strings", got.AccountID, got.Metadata)
	}
	if got.Action != entry.Action {
		t.Errorf("action = %q, want %q", got.Action, entry.Action)
	}
}
