package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/disruption-hub/chat-auth/internal/identity/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a phone identity repository that uses the
// given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const identityColumns = `id, tenant_id, phone_raw, phone_normalized, country_code,
	display_name, email, linked_user_id, last_active_at, created_at, updated_at`

// GetByID returns the identity for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.PhoneIdentity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM phone_identities WHERE id = $1`, id)
	return scanIdentity(row)
}

// GetByNormalizedPhone returns the identity for (tenantID, phoneNormalized),
// or nil if not found.
func (r *PostgresRepository) GetByNormalizedPhone(ctx context.Context, tenantID, phoneNormalized string) (*domain.PhoneIdentity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM phone_identities
		 WHERE tenant_id = $1 AND phone_normalized = $2`, tenantID, phoneNormalized)
	return scanIdentity(row)
}

// Upsert inserts the identity keyed by (tenant_id, phone_normalized); on
// conflict it refreshes phone_raw, country_code, last_active_at, and
// updated_at. Returns the stored row.
func (r *PostgresRepository) Upsert(ctx context.Context, i *domain.PhoneIdentity) (*domain.PhoneIdentity, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO phone_identities
		   (id, tenant_id, phone_raw, phone_normalized, country_code,
		    display_name, email, linked_user_id, last_active_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (tenant_id, phone_normalized) DO UPDATE SET
		   phone_raw = EXCLUDED.phone_raw,
		   country_code = EXCLUDED.country_code,
		   last_active_at = EXCLUDED.last_active_at,
		   updated_at = EXCLUDED.updated_at
		 RETURNING `+identityColumns,
		i.ID, i.TenantID, i.PhoneRaw, i.PhoneNormalized, i.CountryCode,
		nullString(i.DisplayName), nullString(i.Email), nullString(i.LinkedUserID),
		i.LastActiveAt, i.CreatedAt, i.UpdatedAt)
	return scanIdentity(row)
}

// TouchLastActive sets the identity's last-active timestamp.
func (r *PostgresRepository) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE phone_identities SET last_active_at = $2, updated_at = $2 WHERE id = $1`, id, at)
	return err
}

func scanIdentity(row *sql.Row) (*domain.PhoneIdentity, error) {
	var (
		i                              domain.PhoneIdentity
		displayName, email, linkedUser sql.NullString
	)
	err := row.Scan(&i.ID, &i.TenantID, &i.PhoneRaw, &i.PhoneNormalized, &i.CountryCode,
		&displayName, &email, &linkedUser, &i.LastActiveAt, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	i.DisplayName = displayName.String
	i.Email = email.String
	i.LinkedUserID = linkedUser.String
	return &i, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
