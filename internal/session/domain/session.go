package domain

import "time"

// Session is a durable bearer-token credential owned by a phone identity.
type Session struct {
	ID         string
	IdentityID string
	Token      string
	ExpiresAt  time.Time
	LastUsedAt *time.Time
	RevokedAt  *time.Time // nil when not revoked
	// Metadata is an opaque side-channel blob stored and returned but never
	// interpreted.
	Metadata  map[string]any
	CreatedAt time.Time
}

// Usable reports whether the session can authenticate a request at now:
// not revoked and not past its expiry.
func (s *Session) Usable(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
