package repository

import (
	"context"

	"github.com/disruption-hub/chat-auth/internal/account/domain"
)

// Repository defines read access to tenant application users. Link-field
// back-fill writes go through the access package's link store instead.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// FindCandidate returns the best application user match for a phone
	// identity within the tenant: matched by back-reference to the identity,
	// case-insensitive email equality, or phone/normalized-phone equality;
	// ranked by back-reference presence, then most recent update.
	FindCandidate(ctx context.Context, tenantID, identityID, email, phoneNormalized string) (*domain.User, error)
}
