package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/disruption-hub/chat-auth/internal/autherr"
	"github.com/disruption-hub/chat-auth/internal/auth/service"
)

// AuthService is the part of the auth service the handlers need.
type AuthService interface {
	RequestOTP(ctx context.Context, in service.RequestOTPInput) (*service.OTPChallenge, error)
	VerifyOTP(ctx context.Context, verificationID, code string) (*service.SessionResult, error)
	ValidateSession(ctx context.Context, token string, extend bool) (*service.SessionResult, error)
	RevokeSession(ctx context.Context, token string) error
	Profile(ctx context.Context, token string) (*service.UserView, error)
	Sync(ctx context.Context, in service.SyncInput) (*service.SyncOutcome, error)
}

// AuthHandler exposes the phone OTP and session endpoints.
type AuthHandler struct {
	Auth AuthService
}

// NewAuthHandler creates the handler set.
func NewAuthHandler(auth AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

// RequestOTP handles POST /auth/phone/request.
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req struct {
		Phone            string `json:"phone" binding:"required"`
		CountryCode      string `json:"countryCode"`
		TenantID         string `json:"tenantId"`
		Host             string `json:"host"`
		Language         string `json:"language"`
		PreferredChannel string `json:"preferredChannel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required", "code": autherr.CodeInvalidPhone})
		return
	}

	challenge, err := h.Auth.RequestOTP(c.Request.Context(), service.RequestOTPInput{
		Phone:            req.Phone,
		CountryCode:      req.CountryCode,
		TenantHint:       tenantHint(req.TenantID, req.Host),
		Language:         req.Language,
		PreferredChannel: req.PreferredChannel,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"verificationId":  challenge.VerificationID,
		"expiresAt":       challenge.ExpiresAt,
		"normalizedPhone": challenge.NormalizedPhone,
		"countryCode":     challenge.CountryCode,
	})
}

// VerifyOTP handles POST /auth/phone/verify.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		VerificationID string `json:"verificationId" binding:"required"`
		Code           string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "verificationId is required", "code": autherr.CodeNotFound})
		return
	}

	result, err := h.Auth.VerifyOTP(c.Request.Context(), req.VerificationID, req.Code)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session": result.Session, "user": result.User})
}

// Sync handles POST /auth/phone/sync.
func (h *AuthHandler) Sync(c *gin.Context) {
	var req struct {
		Phone        string `json:"phone" binding:"required"`
		CountryCode  string `json:"countryCode"`
		TenantID     string `json:"tenantId"`
		Host         string `json:"host"`
		SessionToken string `json:"sessionToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required", "code": autherr.CodeInvalidPhone})
		return
	}

	outcome, err := h.Auth.Sync(c.Request.Context(), service.SyncInput{
		Phone:         req.Phone,
		CountryCode:   req.CountryCode,
		TenantHint:    tenantHint(req.TenantID, req.Host),
		ExistingToken: req.SessionToken,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// ValidateSession handles POST /auth/phone/session.
func (h *AuthHandler) ValidateSession(c *gin.Context) {
	var req struct {
		Token  string `json:"token"`
		Extend bool   `json:"extend"`
	}
	_ = c.ShouldBindJSON(&req)
	token := extractToken(c, req.Token)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session token is required", "code": autherr.CodeSessionInvalid})
		return
	}

	result, err := h.Auth.ValidateSession(c.Request.Context(), token, req.Extend)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session": result.Session, "user": result.User})
}

// RevokeSession handles DELETE /auth/phone/session.
func (h *AuthHandler) RevokeSession(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	_ = c.ShouldBindJSON(&req)
	token := extractToken(c, req.Token)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session token is required", "code": autherr.CodeSessionInvalid})
		return
	}

	if err := h.Auth.RevokeSession(c.Request.Context(), token); err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Profile handles GET /auth/phone/profile.
func (h *AuthHandler) Profile(c *gin.Context) {
	token := extractToken(c, "")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session token is required", "code": autherr.CodeSessionInvalid})
		return
	}

	profile, err := h.Auth.Profile(c.Request.Context(), token)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": profile})
}

// tenantHint prefers an explicit tenant id over a host-derived hint.
func tenantHint(tenantID, host string) string {
	if strings.TrimSpace(tenantID) != "" {
		return tenantID
	}
	return host
}

// extractToken resolves the session token from the body field, the `token`
// query parameter, or an `Authorization: Bearer` header, in that order.
func extractToken(c *gin.Context, bodyToken string) string {
	if bodyToken != "" {
		return bodyToken
	}
	if t := c.Query("token"); t != "" {
		return t
	}
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// writeDomainError maps OTP issue/verify errors: caller faults get 400,
// operational failures get 500.
func writeDomainError(c *gin.Context, err error) {
	code := autherr.CodeOf(err)
	switch code {
	case autherr.CodeInvalidPhone, autherr.CodeInvalidCode, autherr.CodeRateLimited,
		autherr.CodeNotFound, autherr.CodeExpired, autherr.CodeAccessDenied,
		autherr.CodeSessionInvalid:
		c.JSON(http.StatusBadRequest, gin.H{"error": autherr.MessageOf(err), "code": code})
	case autherr.CodeDeliveryFailed, autherr.CodeConfigNotFound, autherr.CodeStorageUnavailable:
		zap.L().Error("otp request failed", zap.String("code", string(code)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": autherr.MessageOf(err), "code": code})
	default:
		zap.L().Error("unexpected error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": autherr.CodeInternal})
	}
}

// writeSessionError maps session endpoint errors: invalid sessions get 401,
// gating failures 403, other domain faults 400.
func writeSessionError(c *gin.Context, err error) {
	code := autherr.CodeOf(err)
	switch code {
	case autherr.CodeSessionInvalid:
		c.JSON(http.StatusUnauthorized, gin.H{"error": autherr.MessageOf(err), "code": code})
	case autherr.CodeAccessDenied:
		c.JSON(http.StatusForbidden, gin.H{"error": autherr.MessageOf(err), "code": code})
	case autherr.CodeInvalidPhone, autherr.CodeInvalidCode, autherr.CodeRateLimited,
		autherr.CodeNotFound, autherr.CodeExpired:
		c.JSON(http.StatusBadRequest, gin.H{"error": autherr.MessageOf(err), "code": code})
	default:
		zap.L().Error("unexpected error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": autherr.CodeInternal})
	}
}
