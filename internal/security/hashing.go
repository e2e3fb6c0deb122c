package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooLong is returned by Hash when the peppered password exceeds
// bcrypt's 72-byte input limit.
var ErrPasswordTooLong = errors.New("password too long to hash")

// Hasher hashes and verifies passwords using bcrypt with a deployment-wide
// pepper. The pepper is appended to the password before hashing, so hashes are
// only verifiable by processes configured with the same pepper. Callers must
// not log or persist plaintext passwords.
type Hasher struct {
	pepper string
	Cost   int
}

// NewHasher returns a Hasher with the given pepper and bcrypt cost (4-31).
// Cost 12 is a reasonable default for interactive login.
func NewHasher(pepper string, cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{pepper: pepper, Cost: cost}
}

// Hash produces a bcrypt hash of the peppered password. The output embeds the
// algorithm parameters and salt, so verification needs no side-channel state.
// bcrypt rejects inputs over 72 bytes; that limit applies to password+pepper
// and surfaces as ErrPasswordTooLong.
func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password+h.pepper), h.Cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", err
	}
	return string(b), nil
}

// Compare verifies password against the stored hash using bcrypt's own
// constant-time comparison. Returns nil if they match; returns an error
// (including bcrypt.ErrMismatchedHashAndPassword) if they do not or on invalid hash.
func (h *Hasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password+h.pepper))
}
