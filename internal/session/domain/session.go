package domain

import (
	"encoding/json"
	"time"
)

// Session is a logged-in device's server-side record. A session stays active
// until it is terminated, evicted to make room under the concurrency cap, or
// passes ExpiresAt.
type Session struct {
	ID         string
	AccountID  string
	DeviceID   string
	DeviceInfo json.RawMessage // client-reported metadata, stored opaquely
	IPAddress  string
	Active     bool
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the session has passed its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
