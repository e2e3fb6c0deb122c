package security

import (
	"testing"
	"time"
)

func TestTokenProvider_IssueAndVerify(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}

	token, err := p.Issue(Claims{"sub": "acct-1", "sid": "sess-1", "role": "user"}, 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("Issue returned empty token")
	}

	claims, err := p.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject() != "acct-1" {
		t.Errorf("Subject = %q, want %q", claims.Subject(), "acct-1")
	}
	if claims.SessionID() != "sess-1" {
		t.Errorf("SessionID = %q, want %q", claims.SessionID(), "sess-1")
	}
	if claims.Role() != "user" {
		t.Errorf("Role = %q, want %q", claims.Role(), "user")
	}
	if _, ok := claims["iat"]; !ok {
		t.Error("verified claims should carry iat")
	}
	if _, ok := claims["exp"]; !ok {
		t.Error("verified claims should carry exp")
	}
}

func TestTokenProvider_VerifyMalformed(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	for _, bad := range []string{"", "garbage", "v2.local.!!!!", "v2.public.abc"} {
		if _, err := p.Verify(bad); err != ErrInvalidToken {
			t.Errorf("Verify(%q): want ErrInvalidToken, got %v", bad, err)
		}
	}
}

func TestTokenProvider_VerifyWrongKey(t *testing.T) {
	p1, _ := NewTestTokenProvider()
	p2, err := NewTokenProvider([]byte("fedcba9876543210fedcba9876543210"), "test-issuer", "test-audience", 15*time.Minute, 0)
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	token, err := p1.Issue(Claims{"sub": "acct-1"}, 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := p2.Verify(token); err != ErrInvalidToken {
		t.Errorf("Verify with wrong key: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_VerifyIssuerAudienceMismatch(t *testing.T) {
	p, _ := NewTestTokenProvider()
	otherIss, err := NewTokenProvider([]byte(testTokenSecret), "other-issuer", "test-audience", 15*time.Minute, 0)
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	otherAud, err := NewTokenProvider([]byte(testTokenSecret), "test-issuer", "other-audience", 15*time.Minute, 0)
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}

	fromOtherIss, _ := otherIss.Issue(Claims{"sub": "acct-1"}, 0)
	if _, err := p.Verify(fromOtherIss); err != ErrInvalidToken {
		t.Errorf("issuer mismatch: want ErrInvalidToken, got %v", err)
	}
	fromOtherAud, _ := otherAud.Issue(Claims{"sub": "acct-1"}, 0)
	if _, err := p.Verify(fromOtherAud); err != ErrInvalidToken {
		t.Errorf("audience mismatch: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_VerifyExpired(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	token, err := p.Issue(Claims{"sub": "acct-1"}, -2*time.Second)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := p.Verify(token); err != ErrInvalidToken {
		t.Errorf("expired token: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_VerifyShortTTLExpires(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	token, err := p.Issue(Claims{"sub": "acct-1"}, 1*time.Second)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := p.Verify(token); err != nil {
		t.Fatalf("fresh 1s token should verify: %v", err)
	}
	time.Sleep(2 * time.Second)
	if _, err := p.Verify(token); err != ErrInvalidToken {
		t.Errorf("1s token after 2s: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_LeewayShrinksValidity(t *testing.T) {
	// Expiry is checked as exp-leeway <= now, so a token whose remaining
	// lifetime is inside the leeway is already rejected.
	p, err := NewTokenProvider([]byte(testTokenSecret), "test-issuer", "test-audience", 15*time.Minute, 30*time.Second)
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	token, err := p.Issue(Claims{"sub": "acct-1"}, 10*time.Second)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := p.Verify(token); err != ErrInvalidToken {
		t.Errorf("token inside leeway margin: want ErrInvalidToken, got %v", err)
	}
}

func TestNewTokenProvider_KeyDerivation(t *testing.T) {
	// Secrets of any length are accepted; non-32-byte secrets are derived.
	short, err := NewTokenProvider([]byte("short"), "iss", "aud", time.Minute, 0)
	if err != nil {
		t.Fatalf("NewTokenProvider short secret: %v", err)
	}
	token, err := short.Issue(Claims{"sub": "a"}, 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := short.Verify(token); err != nil {
		t.Errorf("Verify: %v", err)
	}

	if _, err := NewTokenProvider(nil, "iss", "aud", time.Minute, 0); err == nil {
		t.Error("empty secret should be rejected")
	}
}
