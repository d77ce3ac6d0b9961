package repository

import (
	"context"

	"github.com/disruption-hub/chat-auth/internal/tenant/domain"
)

// Repository defines lookup access to tenants.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*domain.Tenant, error)
	GetByDomain(ctx context.Context, host string) (*domain.Tenant, error)
}
