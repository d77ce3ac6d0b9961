package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/disruption-hub/chat-auth/internal/tenant/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a tenant repository that uses the given db
// for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const tenantColumns = `id, name, subdomain, domain`

// GetByID returns the tenant for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

// GetBySubdomain returns the tenant for subdomain, or nil if not found.
func (r *PostgresRepository) GetBySubdomain(ctx context.Context, subdomain string) (*domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE subdomain = $1`, subdomain)
	return scanTenant(row)
}

// GetByDomain returns the tenant whose custom domain equals host, or nil if
// not found.
func (r *PostgresRepository) GetByDomain(ctx context.Context, host string) (*domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE domain = $1`, host)
	return scanTenant(row)
}

func scanTenant(row *sql.Row) (*domain.Tenant, error) {
	var (
		t                 domain.Tenant
		subdomain, domCol sql.NullString
	)
	err := row.Scan(&t.ID, &t.Name, &subdomain, &domCol)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.Subdomain = subdomain.String
	t.Domain = domCol.String
	return &t, nil
}
