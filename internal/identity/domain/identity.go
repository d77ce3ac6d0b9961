package domain

import (
	"errors"
	"time"
)

// PhoneIdentity represents a phone number within one tenant. It is upserted
// on every OTP request and owns the one-time codes and sessions issued for
// it. (TenantID, PhoneNormalized) is unique.
type PhoneIdentity struct {
	ID              string
	TenantID        string
	PhoneRaw        string
	PhoneNormalized string
	CountryCode     string
	DisplayName     string // optional; back-filled from the linked account
	Email           string // optional; back-filled from the linked account
	LinkedUserID    string // back-reference to the application user; empty until linked
	LastActiveAt    time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate validates the identity for persistence. Returns an error
// describing the first validation failure.
func (i *PhoneIdentity) Validate() error {
	if i.TenantID == "" {
		return errors.New("tenant id is required")
	}
	if i.PhoneNormalized == "" {
		return errors.New("normalized phone is required")
	}
	return nil
}
