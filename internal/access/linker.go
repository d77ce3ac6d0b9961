// Package access resolves the association between ephemeral phone identities
// and durable tenant application users, and gates every OTP and session
// operation on the account's current approval state.
package access

import (
	"context"

	"go.uber.org/zap"

	accountdomain "github.com/disruption-hub/chat-auth/internal/account/domain"
	"github.com/disruption-hub/chat-auth/internal/autherr"
	identitydomain "github.com/disruption-hub/chat-auth/internal/identity/domain"
)

// AccountRepo is the minimal application user repository needed by the linker.
type AccountRepo interface {
	GetByID(ctx context.Context, id string) (*accountdomain.User, error)
	FindCandidate(ctx context.Context, tenantID, identityID, email, phoneNormalized string) (*accountdomain.User, error)
}

// LinkStore applies a LinkPatch in a single transaction.
type LinkStore interface {
	ApplyLink(ctx context.Context, p LinkPatch) error
}

// Linker resolves and gates phone identity ↔ application user links. It is
// the single gate shared by OTP request, OTP verification, and session
// validation.
type Linker struct {
	accounts AccountRepo
	links    LinkStore
}

// NewLinker returns a Linker with the given dependencies.
func NewLinker(accounts AccountRepo, links LinkStore) *Linker {
	return &Linker{accounts: accounts, links: links}
}

// EnsureAccessApproved resolves the application user for the identity,
// back-fills missing link fields on both records, and enforces the gating
// checks. Returns access_denied on any failure; the message varies by cause
// but the code is uniform. The only side effect is the link back-fill.
func (l *Linker) EnsureAccessApproved(ctx context.Context, ident *identitydomain.PhoneIdentity) (*accountdomain.User, error) {
	user, err := l.resolve(ctx, ident)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherr.New(autherr.CodeAccessDenied, "no authorized account found for this phone number")
	}

	if patch := Reconcile(ident, user); !patch.Empty() {
		if err := l.links.ApplyLink(ctx, patch); err != nil {
			return nil, err
		}
		patch.apply(ident, user)
		zap.L().Debug("linked phone identity to application user",
			zap.String("identity_id", ident.ID), zap.String("user_id", user.ID))
	}

	if err := Gate(user); err != nil {
		return nil, err
	}
	return user, nil
}

// resolve finds the application user: the explicitly linked account first,
// else the best candidate in the tenant.
func (l *Linker) resolve(ctx context.Context, ident *identitydomain.PhoneIdentity) (*accountdomain.User, error) {
	if ident.LinkedUserID != "" {
		user, err := l.accounts.GetByID(ctx, ident.LinkedUserID)
		if err != nil {
			return nil, err
		}
		if user != nil {
			return user, nil
		}
		// Stale back-reference; fall through to candidate matching.
	}
	return l.accounts.FindCandidate(ctx, ident.TenantID, ident.ID, ident.Email, ident.PhoneNormalized)
}

// Gate enforces the approval checks in order, each with a distinct
// user-facing message under the uniform access_denied code.
func Gate(u *accountdomain.User) error {
	if u.ApprovalStatus != accountdomain.ApprovalApproved {
		return autherr.New(autherr.CodeAccessDenied, "your account is awaiting approval")
	}
	switch u.Status {
	case accountdomain.StatusSuspended:
		return autherr.New(autherr.CodeAccessDenied, "your account has been suspended")
	case accountdomain.StatusInactive:
		return autherr.New(autherr.CodeAccessDenied, "your account is inactive")
	}
	switch u.ChatbotAccessStatus {
	case accountdomain.ChatbotAccessApproved:
		return nil
	case accountdomain.ChatbotAccessRevoked:
		return autherr.New(autherr.CodeAccessDenied, "chat access has been revoked for your account")
	default:
		return autherr.New(autherr.CodeAccessDenied, "chat access for your account is pending approval")
	}
}
