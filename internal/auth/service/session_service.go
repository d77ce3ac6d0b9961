package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	accountdomain "github.com/disruption-hub/chat-auth/internal/account/domain"
	"github.com/disruption-hub/chat-auth/internal/autherr"
	identitydomain "github.com/disruption-hub/chat-auth/internal/identity/domain"
	"github.com/disruption-hub/chat-auth/internal/phone"
	sessiondomain "github.com/disruption-hub/chat-auth/internal/session/domain"
)

// SessionView is the client-facing shape of a session.
type SessionView struct {
	SessionID string         `json:"sessionId"`
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	CreatedAt time.Time      `json:"createdAt"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// UserView merges the phone identity with its linked account data.
type UserView struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenantId"`
	Phone        string    `json:"phone"`
	CountryCode  string    `json:"countryCode"`
	DisplayName  string    `json:"displayName,omitempty"`
	Email        string    `json:"email,omitempty"`
	AccountID    string    `json:"accountId,omitempty"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}

// SessionResult pairs a session with the user view behind it.
type SessionResult struct {
	Session *SessionView `json:"session"`
	User    *UserView    `json:"user"`
}

// ValidateSession authenticates a bearer token, re-gates the underlying
// account, and refreshes last-used (and, when extend is true, the expiry in
// the same write). The identity's last-active timestamp is always refreshed.
func (s *AuthService) ValidateSession(ctx context.Context, token string, extend bool) (*SessionResult, error) {
	sess, ident, err := s.lookupSession(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := s.linker.EnsureAccessApproved(ctx, ident)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var newExpiry *time.Time
	if extend {
		e := now.Add(sessionTTL)
		newExpiry = &e
		sess.ExpiresAt = e
	}
	if err := s.sessions.Touch(ctx, sess.ID, now, newExpiry); err != nil {
		return nil, err
	}
	sess.LastUsedAt = &now
	if err := s.identities.TouchLastActive(ctx, ident.ID, now); err != nil {
		zap.L().Error("last-active refresh failed", zap.String("identity_id", ident.ID), zap.Error(err))
	}
	ident.LastActiveAt = now

	return &SessionResult{Session: sessionView(sess), User: userView(ident, user)}, nil
}

// RevokeSession soft-revokes the session for token; the row is retained.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return autherr.New(autherr.CodeSessionInvalid, "session token is required")
	}
	sess, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if sess == nil {
		return autherr.New(autherr.CodeSessionInvalid, "session not found")
	}
	return s.sessions.Revoke(ctx, sess.ID, s.now())
}

// Profile returns the merged identity+account view for the session token
// without extending the session.
func (s *AuthService) Profile(ctx context.Context, token string) (*UserView, error) {
	result, err := s.ValidateSession(ctx, token, false)
	if err != nil {
		return nil, err
	}
	return result.User, nil
}

// SyncInput carries the parameters of a session sync attempt.
type SyncInput struct {
	Phone         string
	CountryCode   string
	TenantHint    string
	ExistingToken string
}

// Sync reasons reported to the client.
const (
	SyncReasonUserNotFound         = "user_not_found"
	SyncReasonAccessDenied         = "access_denied"
	SyncReasonSessionRestored      = "session_restored"
	SyncReasonVerificationRequired = "verification_required"
	SyncReasonNoActiveSession      = "no_active_session"
)

// SyncOutcome tells a returning client whether its session was restored and
// what to do next.
type SyncOutcome struct {
	Success     bool         `json:"success"`
	RequiresOTP bool         `json:"requiresOtp,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	Message     string       `json:"message,omitempty"`
	Session     *SessionView `json:"session,omitempty"`
	User        *UserView    `json:"user,omitempty"`
}

// Sync is the idempotent "try to resume, else tell the client what to do
// next" operation. A gating failure additionally revokes all sessions held
// by the identity.
func (s *AuthService) Sync(ctx context.Context, in SyncInput) (*SyncOutcome, error) {
	num, err := phone.Normalize(in.Phone, in.CountryCode)
	if err != nil {
		return nil, err
	}
	tenantID, err := s.tenants.Resolve(ctx, in.TenantHint)
	if err != nil {
		return nil, err
	}

	ident, err := s.identities.GetByNormalizedPhone(ctx, tenantID, num.Normalized)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return &SyncOutcome{
			Reason:  SyncReasonUserNotFound,
			Message: "user not found, register first",
		}, nil
	}

	now := s.now()
	user, err := s.linker.EnsureAccessApproved(ctx, ident)
	if err != nil {
		if autherr.CodeOf(err) == autherr.CodeAccessDenied {
			if revErr := s.sessions.RevokeAllByIdentity(ctx, ident.ID, now); revErr != nil {
				zap.L().Error("revoke-all on access denial failed",
					zap.String("identity_id", ident.ID), zap.Error(revErr))
			}
			return &SyncOutcome{
				Reason:  SyncReasonAccessDenied,
				Message: autherr.MessageOf(err),
			}, nil
		}
		return nil, err
	}

	if tok := strings.TrimSpace(in.ExistingToken); tok != "" {
		sess, err := s.sessions.GetByToken(ctx, tok)
		if err != nil {
			return nil, err
		}
		if sess != nil && sess.IdentityID == ident.ID && sess.Usable(now) {
			if err := s.sessions.Touch(ctx, sess.ID, now, nil); err != nil {
				return nil, err
			}
			sess.LastUsedAt = &now
			if err := s.identities.TouchLastActive(ctx, ident.ID, now); err != nil {
				zap.L().Error("last-active refresh failed", zap.String("identity_id", ident.ID), zap.Error(err))
			}
			return &SyncOutcome{
				Success: true,
				Reason:  SyncReasonSessionRestored,
				Session: sessionView(sess),
				User:    userView(ident, user),
			}, nil
		}
	}

	latest, err := s.sessions.LatestActive(ctx, ident.ID, now)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		return &SyncOutcome{
			RequiresOTP: true,
			Reason:      SyncReasonVerificationRequired,
			Message:     "verification required",
		}, nil
	}
	return &SyncOutcome{
		RequiresOTP: true,
		Reason:      SyncReasonNoActiveSession,
		Message:     "no active session, verification required",
	}, nil
}

// lookupSession resolves token to a usable session and its identity.
func (s *AuthService) lookupSession(ctx context.Context, token string) (*sessiondomain.Session, *identitydomain.PhoneIdentity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil, autherr.New(autherr.CodeSessionInvalid, "session token is required")
	}
	sess, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if sess == nil {
		return nil, nil, autherr.New(autherr.CodeSessionInvalid, "session not found")
	}
	if !sess.Usable(s.now()) {
		return nil, nil, autherr.New(autherr.CodeSessionInvalid, "session expired or revoked")
	}
	ident, err := s.identities.GetByID(ctx, sess.IdentityID)
	if err != nil {
		return nil, nil, err
	}
	if ident == nil {
		return nil, nil, autherr.New(autherr.CodeSessionInvalid, "session not found")
	}
	return sess, ident, nil
}

func sessionView(s *sessiondomain.Session) *SessionView {
	return &SessionView{
		SessionID: s.ID,
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
		Metadata:  s.Metadata,
	}
}

func userView(i *identitydomain.PhoneIdentity, u *accountdomain.User) *UserView {
	v := &UserView{
		ID:           i.ID,
		TenantID:     i.TenantID,
		Phone:        i.PhoneNormalized,
		CountryCode:  i.CountryCode,
		DisplayName:  i.DisplayName,
		Email:        i.Email,
		LastActiveAt: i.LastActiveAt,
	}
	if u != nil {
		v.AccountID = u.ID
		if v.DisplayName == "" {
			v.DisplayName = u.DisplayName
		}
		if v.Email == "" {
			v.Email = u.Email
		}
	}
	return v
}
