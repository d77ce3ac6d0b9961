package repository

import (
	"context"
	"time"

	"github.com/disruption-hub/chat-auth/internal/session/domain"
)

// Repository defines persistence for sessions.
type Repository interface {
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	// PruneBeyond hard-deletes all sessions for the identity except the
	// `keep` newest by creation time.
	PruneBeyond(ctx context.Context, identityID string, keep int) error
	// Touch updates last_used_at and, when expiresAt is non-nil, expires_at
	// in the same write.
	Touch(ctx context.Context, id string, lastUsedAt time.Time, expiresAt *time.Time) error
	Revoke(ctx context.Context, id string, at time.Time) error
	RevokeAllByIdentity(ctx context.Context, identityID string, at time.Time) error
	// LatestActive returns the most recent non-revoked, non-expired session
	// for the identity, or nil if none exists.
	LatestActive(ctx context.Context, identityID string, now time.Time) (*domain.Session, error)
	// DeleteExpiredBefore hard-deletes sessions that expired or were revoked
	// before cutoff and returns the number of rows removed.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
