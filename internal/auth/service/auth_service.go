// Package service implements the phone OTP authentication flows: code
// issuance and delivery, verification, and the session lifecycle.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	accountdomain "github.com/disruption-hub/chat-auth/internal/account/domain"
	"github.com/disruption-hub/chat-auth/internal/autherr"
	identitydomain "github.com/disruption-hub/chat-auth/internal/identity/domain"
	identityrepo "github.com/disruption-hub/chat-auth/internal/identity/repository"
	otpdomain "github.com/disruption-hub/chat-auth/internal/otp/domain"
	otprepo "github.com/disruption-hub/chat-auth/internal/otp/repository"
	"github.com/disruption-hub/chat-auth/internal/phone"
	"github.com/disruption-hub/chat-auth/internal/security"
	sessiondomain "github.com/disruption-hub/chat-auth/internal/session/domain"
	sessionrepo "github.com/disruption-hub/chat-auth/internal/session/repository"
	"github.com/disruption-hub/chat-auth/internal/sms"
)

// Operational limits of the OTP and session lifecycle.
const (
	resendWindow = 60 * time.Second
	codeTTL      = 5 * time.Minute
	maxAttempts  = 5
	sessionTTL   = 180 * 24 * time.Hour
	maxSessions  = 5
)

// TenantResolver maps an opaque tenant hint to a canonical tenant id.
type TenantResolver interface {
	Resolve(ctx context.Context, hint string) (string, error)
}

// AccessLinker resolves and gates the application user behind a phone
// identity. Invoked on every OTP request, verification, and session use.
type AccessLinker interface {
	EnsureAccessApproved(ctx context.Context, ident *identitydomain.PhoneIdentity) (*accountdomain.User, error)
}

// Sender delivers the OTP message via the preferred channel with fallback to
// the default one.
type Sender interface {
	Send(ctx context.Context, preferred, destination, message string) error
}

// AuthService implements OTP request/verify and session validate, revoke,
// sync, and profile.
type AuthService struct {
	identities identityrepo.Repository
	codes      otprepo.Repository
	sessions   sessionrepo.Repository
	tenants    TenantResolver
	linker     AccessLinker
	sender     Sender
	hasher     *security.Hasher
	now        func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(
	identities identityrepo.Repository,
	codes otprepo.Repository,
	sessions sessionrepo.Repository,
	tenants TenantResolver,
	linker AccessLinker,
	sender Sender,
	hasher *security.Hasher,
) *AuthService {
	return &AuthService{
		identities: identities,
		codes:      codes,
		sessions:   sessions,
		tenants:    tenants,
		linker:     linker,
		sender:     sender,
		hasher:     hasher,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RequestOTPInput carries the parameters of an OTP request.
type RequestOTPInput struct {
	Phone            string
	CountryCode      string
	TenantHint       string
	Language         string
	PreferredChannel string
}

// OTPChallenge is the client-facing outcome of an OTP request. It never
// carries the code or the internal row id.
type OTPChallenge struct {
	VerificationID  string    `json:"verificationId"`
	ExpiresAt       time.Time `json:"expiresAt"`
	NormalizedPhone string    `json:"normalizedPhone"`
	CountryCode     string    `json:"countryCode"`
}

// RequestOTP normalizes the phone, upserts the identity, gates access,
// enforces the resend cool-down, and issues and delivers a one-time code.
// On delivery failure the just-created code is deleted before the error
// propagates.
func (s *AuthService) RequestOTP(ctx context.Context, in RequestOTPInput) (*OTPChallenge, error) {
	num, err := phone.Normalize(in.Phone, in.CountryCode)
	if err != nil {
		return nil, err
	}
	tenantID, err := s.tenants.Resolve(ctx, in.TenantHint)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ident := &identitydomain.PhoneIdentity{
		ID:              uuid.New().String(),
		TenantID:        tenantID,
		PhoneRaw:        num.Raw,
		PhoneNormalized: num.Normalized,
		CountryCode:     num.CountryCode,
		LastActiveAt:    now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := ident.Validate(); err != nil {
		return nil, err
	}
	ident, err = s.identities.Upsert(ctx, ident)
	if err != nil {
		return nil, err
	}

	if _, err := s.linker.EnsureAccessApproved(ctx, ident); err != nil {
		return nil, err
	}

	last, err := s.codes.LatestByIdentity(ctx, ident.ID)
	if err != nil {
		return nil, err
	}
	if last != nil && now.Sub(last.CreatedAt) < resendWindow {
		return nil, autherr.New(autherr.CodeRateLimited, "please wait before requesting another code")
	}

	code, err := security.GenerateCode()
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash([]byte(code))
	if err != nil {
		return nil, err
	}
	verificationID, err := security.NewVerificationID()
	if err != nil {
		return nil, err
	}
	otc := &otpdomain.OneTimeCode{
		ID:             uuid.New().String(),
		VerificationID: verificationID,
		IdentityID:     ident.ID,
		CodeHash:       hash,
		ExpiresAt:      now.Add(codeTTL),
		CreatedAt:      now,
	}
	if err := s.codes.Create(ctx, otc); err != nil {
		return nil, err
	}

	message := otpMessage(in.Language, code)
	if err := s.sender.Send(ctx, in.PreferredChannel, num.Normalized, message); err != nil {
		if delErr := s.codes.Delete(ctx, otc.ID); delErr != nil {
			zap.L().Error("failed to delete undelivered code",
				zap.String("code_id", otc.ID), zap.Error(delErr))
		}
		var de *sms.DeliveryError
		if errors.As(err, &de) && de.Unauthorized() {
			return nil, autherr.Wrap(autherr.CodeConfigNotFound, "message delivery is not configured", err)
		}
		return nil, autherr.Wrap(autherr.CodeDeliveryFailed, "could not deliver the verification code", err)
	}

	return &OTPChallenge{
		VerificationID:  verificationID,
		ExpiresAt:       otc.ExpiresAt,
		NormalizedPhone: num.Normalized,
		CountryCode:     num.CountryCode,
	}, nil
}

// VerifyOTP checks the submitted code for the verification id and, on
// success, atomically consumes the code and creates a session. The access
// gate runs before the hash comparison, so a revoked account cannot burn
// attempts or redeem a correct code.
func (s *AuthService) VerifyOTP(ctx context.Context, verificationID, code string) (*SessionResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, autherr.New(autherr.CodeInvalidCode, "verification code is required")
	}
	otc, err := s.codes.GetByVerificationID(ctx, strings.TrimSpace(verificationID))
	if err != nil {
		return nil, err
	}
	if otc == nil {
		return nil, autherr.New(autherr.CodeNotFound, "verification not found")
	}

	now := s.now()
	if otc.Expired(now) {
		return nil, autherr.New(autherr.CodeExpired, "verification code has expired, request a new one")
	}
	if otc.AttemptCount >= maxAttempts {
		return nil, autherr.New(autherr.CodeInvalidCode, "too many attempts, request a new code")
	}

	ident, err := s.identities.GetByID(ctx, otc.IdentityID)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, autherr.New(autherr.CodeNotFound, "verification not found")
	}
	user, err := s.linker.EnsureAccessApproved(ctx, ident)
	if err != nil {
		return nil, err
	}

	if err := s.hasher.Compare(otc.CodeHash, []byte(code)); err != nil {
		if incErr := s.codes.IncrementAttempts(ctx, otc.ID); incErr != nil {
			return nil, incErr
		}
		return nil, autherr.New(autherr.CodeInvalidCode, "incorrect verification code")
	}

	sess, err := s.newSession(ident.ID, nil, now)
	if err != nil {
		return nil, err
	}
	if err := s.codes.Redeem(ctx, otc.ID, sess); err != nil {
		if errors.Is(err, otprepo.ErrAlreadyRedeemed) {
			return nil, autherr.New(autherr.CodeNotFound, "verification not found")
		}
		return nil, err
	}
	// Eventual enforcement of the session cap; a brief window above the cap
	// is acceptable.
	if err := s.sessions.PruneBeyond(ctx, ident.ID, maxSessions); err != nil {
		zap.L().Error("session prune failed", zap.String("identity_id", ident.ID), zap.Error(err))
	}
	if err := s.identities.TouchLastActive(ctx, ident.ID, now); err != nil {
		zap.L().Error("last-active refresh failed", zap.String("identity_id", ident.ID), zap.Error(err))
	}
	ident.LastActiveAt = now

	return &SessionResult{Session: sessionView(sess), User: userView(ident, user)}, nil
}

func (s *AuthService) newSession(identityID string, metadata map[string]any, now time.Time) (*sessiondomain.Session, error) {
	token, err := security.NewSessionToken()
	if err != nil {
		return nil, err
	}
	return &sessiondomain.Session{
		ID:         uuid.New().String(),
		IdentityID: identityID,
		Token:      token,
		ExpiresAt:  now.Add(sessionTTL),
		Metadata:   metadata,
		CreatedAt:  now,
	}, nil
}
