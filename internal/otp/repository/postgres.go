package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/disruption-hub/chat-auth/internal/otp/domain"
	sessiondomain "github.com/disruption-hub/chat-auth/internal/session/domain"
)

// ErrAlreadyRedeemed is returned by Redeem when the code row was deleted
// before the transaction could consume it.
var ErrAlreadyRedeemed = errors.New("one-time code already redeemed or deleted")

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a one-time code repository that uses the
// given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const codeColumns = `id, verification_id, identity_id, code_hash, expires_at, attempt_count, created_at`

// Create persists the one-time code. The code must have ID and
// VerificationID set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.OneTimeCode) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO one_time_codes (id, verification_id, identity_id, code_hash, expires_at, attempt_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.VerificationID, c.IdentityID, c.CodeHash, c.ExpiresAt, c.AttemptCount, c.CreatedAt)
	return err
}

// GetByVerificationID returns the code for the public verification id, or
// nil if not found.
func (r *PostgresRepository) GetByVerificationID(ctx context.Context, verificationID string) (*domain.OneTimeCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+codeColumns+` FROM one_time_codes WHERE verification_id = $1`, verificationID)
	return scanCode(row)
}

// LatestByIdentity returns the most recently created code for the identity,
// or nil if none exists.
func (r *PostgresRepository) LatestByIdentity(ctx context.Context, identityID string) (*domain.OneTimeCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+codeColumns+` FROM one_time_codes
		 WHERE identity_id = $1 ORDER BY created_at DESC LIMIT 1`, identityID)
	return scanCode(row)
}

// IncrementAttempts adds one failed attempt to the code.
func (r *PostgresRepository) IncrementAttempts(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE one_time_codes SET attempt_count = attempt_count + 1 WHERE id = $1`, id)
	return err
}

// Delete removes the code by internal id. Used as the compensating action
// after a delivery failure.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM one_time_codes WHERE id = $1`, id)
	return err
}

// Redeem deletes the code and inserts the session in one transaction, so no
// state is observable where the code is consumed without a session or a
// session exists while the code is still redeemable.
func (r *PostgresRepository) Redeem(ctx context.Context, id string, s *sessiondomain.Session) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM one_time_codes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAlreadyRedeemed
	}

	metadata, err := marshalMetadata(s.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, identity_id, token, expires_at, last_used_at, revoked_at, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.IdentityID, s.Token, s.ExpiresAt, nullTime(s.LastUsedAt), nullTime(s.RevokedAt), metadata, s.CreatedAt)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteExpiredBefore removes codes whose expiry passed before cutoff.
func (r *PostgresRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM one_time_codes WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanCode(row *sql.Row) (*domain.OneTimeCode, error) {
	var c domain.OneTimeCode
	err := row.Scan(&c.ID, &c.VerificationID, &c.IdentityID, &c.CodeHash,
		&c.ExpiresAt, &c.AttemptCount, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func marshalMetadata(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}
