package domain

import "time"

// OneTimeCode is a pending verification challenge. The client only ever sees
// VerificationID; the row id stays internal.
type OneTimeCode struct {
	ID             string
	VerificationID string
	IdentityID     string
	CodeHash       string
	ExpiresAt      time.Time
	AttemptCount   int
	CreatedAt      time.Time
}

// Expired reports whether the code can no longer be redeemed at now.
func (c *OneTimeCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
