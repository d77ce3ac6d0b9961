package repository

import (
	"context"
	"time"

	"github.com/disruption-hub/chat-auth/internal/otp/domain"
	sessiondomain "github.com/disruption-hub/chat-auth/internal/session/domain"
)

// Repository defines persistence for one-time codes.
type Repository interface {
	Create(ctx context.Context, c *domain.OneTimeCode) error
	GetByVerificationID(ctx context.Context, verificationID string) (*domain.OneTimeCode, error)
	// LatestByIdentity returns the most recently created code for the
	// identity regardless of validity, or nil if none exists. Used for the
	// resend cool-down check.
	LatestByIdentity(ctx context.Context, identityID string) (*domain.OneTimeCode, error)
	IncrementAttempts(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	// Redeem deletes the code and creates the session in a single
	// transaction. Returns ErrAlreadyRedeemed when the code row no longer
	// exists; in that case no session is created.
	Redeem(ctx context.Context, id string, s *sessiondomain.Session) error
	// DeleteExpiredBefore hard-deletes codes whose expiry passed before
	// cutoff and returns the number of rows removed.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
