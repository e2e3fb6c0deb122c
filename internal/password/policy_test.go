package password

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeBreachChecker struct {
	breached bool
	err      error
	calls    int
}

func (f *fakeBreachChecker) IsBreached(ctx context.Context, password string) (bool, error) {
	f.calls++
	return f.breached, f.err
}

func TestPolicy_Validate_TooShort(t *testing.T) {
	p := NewPolicy(12, nil, nil)
	// Length is checked first, regardless of composition.
	for _, pw := range []string{"", "a", "Ab1!short", "AAAAAAA"} {
		ok, reason := p.Validate(context.Background(), pw)
		if ok {
			t.Errorf("Validate(%q) should reject", pw)
		}
		if !strings.Contains(reason, "at least 12 characters") {
			t.Errorf("Validate(%q) reason = %q, want length reason", pw, reason)
		}
	}
}

func TestPolicy_Validate_TooLong(t *testing.T) {
	p := NewPolicy(12, nil, nil)
	// 65 bytes: over the cap that keeps password+pepper inside bcrypt's
	// 72-byte input limit. Must be a policy outcome, not a hashing error.
	pw := "Aa1!" + strings.Repeat("x", 61)
	ok, reason := p.Validate(context.Background(), pw)
	if ok {
		t.Fatalf("Validate(%d bytes) should reject", len(pw))
	}
	if !strings.Contains(reason, "at most 64 characters") {
		t.Errorf("reason = %q, want max-length reason", reason)
	}
}

func TestPolicy_Validate_MaxLengthAccepted(t *testing.T) {
	p := NewPolicy(12, nil, nil)
	pw := "Aa1!" + strings.Repeat("x", 60) // exactly 64 bytes
	if ok, reason := p.Validate(context.Background(), pw); !ok {
		t.Fatalf("Validate(64 bytes) should accept, got reason %q", reason)
	}
}

func TestPolicy_Validate_MissingClasses(t *testing.T) {
	p := NewPolicy(12, nil, nil)
	testCases := []struct {
		name     string
		password string
		want     []string
		notWant  []string
	}{
		{
			name:     "no uppercase",
			password: "lowercase123!aa",
			want:     []string{"uppercase letter"},
			notWant:  []string{"lowercase letter", "number", "special character"},
		},
		{
			name:     "no digit or special",
			password: "OnlyLettersHere",
			want:     []string{"number", "special character"},
			notWant:  []string{"uppercase letter", "lowercase letter"},
		},
		{
			name:     "only lowercase",
			password: "aaaaaaaaaaaaaaaa",
			want:     []string{"uppercase letter", "number", "special character"},
			notWant:  []string{"lowercase letter"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := p.Validate(context.Background(), tc.password)
			if ok {
				t.Fatalf("Validate(%q) should reject", tc.password)
			}
			for _, w := range tc.want {
				if !strings.Contains(reason, w) {
					t.Errorf("reason %q should list %q", reason, w)
				}
			}
			for _, nw := range tc.notWant {
				if strings.Contains(reason, nw) {
					t.Errorf("reason %q should not list %q", reason, nw)
				}
			}
		})
	}
}

func TestPolicy_Validate_Accepted(t *testing.T) {
	p := NewPolicy(12, nil, nil)
	ok, reason := p.Validate(context.Background(), "Sufficient123!pw")
	if !ok {
		t.Fatalf("Validate should accept, got reason %q", reason)
	}
}

func TestPolicy_Validate_Breached(t *testing.T) {
	checker := &fakeBreachChecker{breached: true}
	p := NewPolicy(12, checker, nil)
	ok, reason := p.Validate(context.Background(), "Sufficient123!pw")
	if ok {
		t.Fatal("breached password should be rejected")
	}
	if !strings.Contains(reason, "data breaches") {
		t.Errorf("reason = %q, want breach notice", reason)
	}
	if checker.calls != 1 {
		t.Errorf("breach checker calls = %d, want 1", checker.calls)
	}
}

func TestPolicy_Validate_BreachServiceUnavailableSkips(t *testing.T) {
	checker := &fakeBreachChecker{err: errors.New("connection refused")}
	p := NewPolicy(12, checker, nil)
	ok, _ := p.Validate(context.Background(), "Sufficient123!pw")
	if !ok {
		t.Fatal("unavailable breach service must not reject a sound password")
	}
}

func TestPolicy_Validate_BreachNotConsultedOnStructuralFailure(t *testing.T) {
	checker := &fakeBreachChecker{breached: true}
	p := NewPolicy(12, checker, nil)
	if ok, _ := p.Validate(context.Background(), "short"); ok {
		t.Fatal("short password should be rejected")
	}
	if checker.calls != 0 {
		t.Errorf("breach checker should not run for structurally invalid passwords, calls = %d", checker.calls)
	}
}
