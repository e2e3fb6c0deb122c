package security

import "time"

// Test token secret (32 bytes) for unit tests only. Do not use in production.
const testTokenSecret = "0123456789abcdef0123456789abcdef"

// NewTestTokenProvider returns a TokenProvider using an embedded test secret
// with zero leeway. For unit tests only.
func NewTestTokenProvider() (*TokenProvider, error) {
	return NewTokenProvider([]byte(testTokenSecret), "test-issuer", "test-audience", 15*time.Minute, 0)
}
