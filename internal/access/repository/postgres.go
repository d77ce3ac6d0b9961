package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/disruption-hub/chat-auth/internal/access"
)

// Column whitelists per table, mapping each linkable back-fill column to its
// fill-only guard. The uuid columns guard on NULL only; comparing a uuid
// column to '' is a type error in Postgres. Anything outside the whitelist is
// a programming error.
var (
	identityLinkColumns = map[string]string{
		"linked_user_id": "linked_user_id IS NULL",
		"display_name":   "(display_name IS NULL OR display_name = '')",
		"email":          "(email IS NULL OR email = '')",
	}
	userLinkColumns = map[string]string{
		"phone_identity_id": "phone_identity_id IS NULL",
		"phone":             "(phone IS NULL OR phone = '')",
		"phone_normalized":  "(phone_normalized IS NULL OR phone_normalized = '')",
		"display_name":      "(display_name IS NULL OR display_name = '')",
		"email":             "(email IS NULL OR email = '')",
	}
)

func fillUpdate(table, field string, columns map[string]string) (string, error) {
	guard, ok := columns[field]
	if !ok {
		return "", fmt.Errorf("access: field %q is not a linkable %s column", field, table)
	}
	return fmt.Sprintf(
		`UPDATE %s SET %s = $2, updated_at = $3 WHERE id = $1 AND %s`,
		table, field, guard), nil
}

// PostgresLinkStore applies link patches across phone_identities and
// app_users in a single transaction.
type PostgresLinkStore struct {
	db *sql.DB
}

// NewPostgresLinkStore returns a link store backed by the given db.
func NewPostgresLinkStore(db *sql.DB) *PostgresLinkStore {
	return &PostgresLinkStore{db: db}
}

// ApplyLink writes the patch atomically. Each field is written with a
// fill-only guard so a concurrent writer's populated value is never
// overwritten.
func (s *PostgresLinkStore) ApplyLink(ctx context.Context, p access.LinkPatch) error {
	if p.Empty() {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, f := range p.IdentityFields {
		q, err := fillUpdate("phone_identities", f.Field, identityLinkColumns)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, q, p.IdentityID, f.Value, now); err != nil {
			return err
		}
	}
	for _, f := range p.UserFields {
		q, err := fillUpdate("app_users", f.Field, userLinkColumns)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, q, p.UserID, f.Value, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}
