package security

import (
	"crypto/sha256"
	"errors"
	"time"

	"aidanwoods.dev/go-paseto"
)

var (
	// ErrInvalidToken is returned when a token is malformed, tampered with,
	// expired, or carries the wrong issuer or audience. Callers never learn which.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the claim set carried by an auth token.
type Claims map[string]any

// Subject returns the sub claim (the account ID), or "" if absent.
func (c Claims) Subject() string { return c.str("sub") }

// SessionID returns the sid claim, or "" if absent.
func (c Claims) SessionID() string { return c.str("sid") }

// Role returns the role claim, or "" if absent.
func (c Claims) Role() string { return c.str("role") }

func (c Claims) str(key string) string {
	v, _ := c[key].(string)
	return v
}

// TokenProvider issues and verifies authenticated-encrypted auth tokens
// (PASETO v2 local, XChaCha20-Poly1305 under a symmetric key). Tokens are
// opaque to their holders; claims are only readable after decryption here.
type TokenProvider struct {
	key       paseto.V2SymmetricKey
	issuer    string
	audience  string
	accessTTL time.Duration
	leeway    time.Duration
}

// NewTokenProvider returns a TokenProvider encrypting with the given secret.
// Secrets that are not exactly 32 bytes are derived via SHA-256. issuer and
// audience are set on issue and required on verify. accessTTL is the default
// lifetime when Issue is called with ttl 0; leeway is the clock-skew allowance
// subtracted from expiry on verify.
func NewTokenProvider(secret []byte, issuer, audience string, accessTTL, leeway time.Duration) (*TokenProvider, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	if len(secret) != 32 {
		sum := sha256.Sum256(secret)
		secret = sum[:]
	}
	key, err := paseto.V2SymmetricKeyFromBytes(secret)
	if err != nil {
		return nil, err
	}
	return &TokenProvider{
		key:       key,
		issuer:    issuer,
		audience:  audience,
		accessTTL: accessTTL,
		leeway:    leeway,
	}, nil
}

// Issue encrypts a token carrying the given claims plus iat=now, exp=now+ttl,
// and the provider's issuer and audience. ttl 0 means the default access TTL.
func (p *TokenProvider) Issue(claims Claims, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = p.accessTTL
	}
	tok := paseto.NewToken()
	for k, v := range claims {
		if err := tok.Set(k, v); err != nil {
			return "", err
		}
	}
	now := time.Now().UTC()
	tok.SetIssuedAt(now)
	tok.SetExpiration(now.Add(ttl))
	tok.SetIssuer(p.issuer)
	tok.SetAudience(p.audience)
	return tok.V2Encrypt(p.key), nil
}

// Verify decrypts and authenticates the token, then checks issuer, audience,
// and expiry (rejecting once exp-leeway <= now). Every failure, malformed
// input included, maps to ErrInvalidToken; Verify never panics on bad input.
func (p *TokenProvider) Verify(tokenString string) (Claims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	tok, err := parser.ParseV2Local(p.key, tokenString)
	if err != nil {
		return nil, ErrInvalidToken
	}
	iss, err := tok.GetIssuer()
	if err != nil || iss != p.issuer {
		return nil, ErrInvalidToken
	}
	aud, err := tok.GetAudience()
	if err != nil || aud != p.audience {
		return nil, ErrInvalidToken
	}
	exp, err := tok.GetExpiration()
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !exp.Add(-p.leeway).After(time.Now().UTC()) {
		return nil, ErrInvalidToken
	}
	return Claims(tok.Claims()), nil
}
