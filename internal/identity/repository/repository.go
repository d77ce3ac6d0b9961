package repository

import (
	"context"
	"time"

	"github.com/disruption-hub/chat-auth/internal/identity/domain"
)

// Repository defines persistence for phone identities.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.PhoneIdentity, error)
	GetByNormalizedPhone(ctx context.Context, tenantID, phoneNormalized string) (*domain.PhoneIdentity, error)
	Upsert(ctx context.Context, i *domain.PhoneIdentity) (*domain.PhoneIdentity, error)
	TouchLastActive(ctx context.Context, id string, at time.Time) error
}
