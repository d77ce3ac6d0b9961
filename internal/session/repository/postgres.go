package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/disruption-hub/chat-auth/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db
// for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, identity_id, token, expires_at, last_used_at, revoked_at, metadata, created_at`

// GetByToken returns the session for token, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token = $1`, token)
	return scanSession(row)
}

// Create persists the session. The session must have ID and Token set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	metadata, err := marshalMetadata(s.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, identity_id, token, expires_at, last_used_at, revoked_at, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.IdentityID, s.Token, s.ExpiresAt, nullTime(s.LastUsedAt), nullTime(s.RevokedAt), metadata, s.CreatedAt)
	return err
}

// PruneBeyond deletes every session for the identity that is not among the
// `keep` newest by creation time. Revoked and expired rows count toward the
// kept set; the cap is on rows, not on usable sessions.
func (r *PostgresRepository) PruneBeyond(ctx context.Context, identityID string, keep int) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions
		 WHERE identity_id = $1 AND id NOT IN (
		   SELECT id FROM sessions WHERE identity_id = $1
		   ORDER BY created_at DESC LIMIT $2
		 )`, identityID, keep)
	return err
}

// Touch updates the session's last-used timestamp and, when expiresAt is
// non-nil, its expiry in the same statement.
func (r *PostgresRepository) Touch(ctx context.Context, id string, lastUsedAt time.Time, expiresAt *time.Time) error {
	if expiresAt != nil {
		_, err := r.db.ExecContext(ctx,
			`UPDATE sessions SET last_used_at = $2, expires_at = $3 WHERE id = $1`,
			id, lastUsedAt, *expiresAt)
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_used_at = $2 WHERE id = $1`, id, lastUsedAt)
	return err
}

// Revoke marks the session as revoked at the given time. The row is
// retained.
func (r *PostgresRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`, id, at)
	return err
}

// RevokeAllByIdentity revokes every non-revoked session for the identity.
func (r *PostgresRepository) RevokeAllByIdentity(ctx context.Context, identityID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = $2 WHERE identity_id = $1 AND revoked_at IS NULL`, identityID, at)
	return err
}

// LatestActive returns the newest non-revoked session whose expiry is after
// now, or nil if none exists.
func (r *PostgresRepository) LatestActive(ctx context.Context, identityID string, now time.Time) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE identity_id = $1 AND revoked_at IS NULL AND expires_at > $2
		 ORDER BY created_at DESC LIMIT 1`, identityID, now)
	return scanSession(row)
}

// DeleteExpiredBefore removes sessions that expired or were revoked before
// cutoff. Used by the cleanup worker; live sessions are never touched.
func (r *PostgresRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < $1 OR revoked_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var (
		s                 domain.Session
		lastUsed, revoked sql.NullTime
		metadata          []byte
	)
	err := row.Scan(&s.ID, &s.IdentityID, &s.Token, &s.ExpiresAt,
		&lastUsed, &revoked, &metadata, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.LastUsedAt = nullTimeToPtr(lastUsed)
	s.RevokedAt = nullTimeToPtr(revoked)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &s.Metadata); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}

func marshalMetadata(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}
