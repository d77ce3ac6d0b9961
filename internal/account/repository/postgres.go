package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/disruption-hub/chat-auth/internal/account/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an application user repository that uses the
// given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, tenant_id, email, phone, phone_normalized, display_name,
	phone_identity_id, approval_status, status, chatbot_access_status, created_at, updated_at`

// GetByID returns the application user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM app_users WHERE id = $1`, id)
	return scanUser(row)
}

// FindCandidate returns the best match for the identity in the tenant, or
// nil if no application user matches. Matching is by back-reference, email
// (case-insensitive), or phone equality; an empty email or phone never
// matches. Candidates already back-referencing the identity rank first, then
// the most recently updated.
func (r *PostgresRepository) FindCandidate(ctx context.Context, tenantID, identityID, email, phoneNormalized string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM app_users
		 WHERE tenant_id = $1 AND (
		   phone_identity_id = $2
		   OR ($3 <> '' AND lower(email) = lower($3))
		   OR ($4 <> '' AND (phone = $4 OR phone_normalized = $4))
		 )
		 ORDER BY (phone_identity_id = $2) DESC NULLS LAST, updated_at DESC
		 LIMIT 1`,
		tenantID, identityID, email, phoneNormalized)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		u                                              domain.User
		email, phone, phoneNorm, displayName, identity sql.NullString
	)
	err := row.Scan(&u.ID, &u.TenantID, &email, &phone, &phoneNorm, &displayName,
		&identity, &u.ApprovalStatus, &u.Status, &u.ChatbotAccessStatus,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Email = email.String
	u.Phone = phone.String
	u.PhoneNormalized = phoneNorm.String
	u.DisplayName = displayName.String
	u.PhoneIdentityID = identity.String
	return &u, nil
}
