package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/disruption-hub/chat-auth/internal/autherr"
	"github.com/disruption-hub/chat-auth/internal/auth/service"
)

type stubAuthService struct {
	challenge  *service.OTPChallenge
	result     *service.SessionResult
	profile    *service.UserView
	outcome    *service.SyncOutcome
	err        error
	lastInput  service.RequestOTPInput
	lastToken  string
	lastExtend bool
	lastSync   service.SyncInput
}

func (s *stubAuthService) RequestOTP(_ context.Context, in service.RequestOTPInput) (*service.OTPChallenge, error) {
	s.lastInput = in
	return s.challenge, s.err
}

func (s *stubAuthService) VerifyOTP(_ context.Context, _, _ string) (*service.SessionResult, error) {
	return s.result, s.err
}

func (s *stubAuthService) ValidateSession(_ context.Context, token string, extend bool) (*service.SessionResult, error) {
	s.lastToken = token
	s.lastExtend = extend
	return s.result, s.err
}

func (s *stubAuthService) RevokeSession(_ context.Context, token string) error {
	s.lastToken = token
	return s.err
}

func (s *stubAuthService) Profile(_ context.Context, token string) (*service.UserView, error) {
	s.lastToken = token
	return s.profile, s.err
}

func (s *stubAuthService) Sync(_ context.Context, in service.SyncInput) (*service.SyncOutcome, error) {
	s.lastSync = in
	return s.outcome, s.err
}

func newTestRouter(stub *stubAuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAuthHandler(stub)
	r.POST("/auth/phone/request", h.RequestOTP)
	r.POST("/auth/phone/verify", h.VerifyOTP)
	r.POST("/auth/phone/sync", h.Sync)
	r.POST("/auth/phone/session", h.ValidateSession)
	r.DELETE("/auth/phone/session", h.RevokeSession)
	r.GET("/auth/phone/profile", h.Profile)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func sampleResult() *service.SessionResult {
	return &service.SessionResult{
		Session: &service.SessionView{
			SessionID: "sess-1",
			Token:     "tok-1",
			ExpiresAt: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		},
		User: &service.UserView{ID: "ident-1", Phone: "+12345678900"},
	}
}

func TestRequestOTP_OK(t *testing.T) {
	stub := &stubAuthService{challenge: &service.OTPChallenge{
		VerificationID:  "vid-1",
		ExpiresAt:       time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
		NormalizedPhone: "+12345678900",
		CountryCode:     "1",
	}}
	r := newTestRouter(stub)

	w := doJSON(t, r, http.MethodPost, "/auth/phone/request", gin.H{
		"phone":    "+1 234 567 8900",
		"tenantId": "tenant-1",
		"language": "es",
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.Equal(t, true, body["success"])
	require.Equal(t, "vid-1", body["verificationId"])
	require.Equal(t, "+12345678900", body["normalizedPhone"])
	require.Equal(t, "tenant-1", stub.lastInput.TenantHint)
	require.Equal(t, "es", stub.lastInput.Language)
}

func TestRequestOTP_HostUsedWhenNoTenantID(t *testing.T) {
	stub := &stubAuthService{challenge: &service.OTPChallenge{VerificationID: "vid-1"}}
	r := newTestRouter(stub)

	w := doJSON(t, r, http.MethodPost, "/auth/phone/request", gin.H{
		"phone": "+1 234 567 8900",
		"host":  "acme.example.com",
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "acme.example.com", stub.lastInput.TenantHint)
}

func TestRequestOTP_MissingPhone(t *testing.T) {
	r := newTestRouter(&stubAuthService{})
	w := doJSON(t, r, http.MethodPost, "/auth/phone/request", gin.H{}, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid_phone", decode(t, w)["code"])
}

func TestRequestOTP_ErrorMapping(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"access denied", autherr.New(autherr.CodeAccessDenied, "awaiting approval"), http.StatusBadRequest, "access_denied"},
		{"rate limited", autherr.New(autherr.CodeRateLimited, "wait"), http.StatusBadRequest, "rate_limited"},
		{"invalid phone", autherr.New(autherr.CodeInvalidPhone, "bad"), http.StatusBadRequest, "invalid_phone"},
		{"delivery failed", autherr.New(autherr.CodeDeliveryFailed, "down"), http.StatusInternalServerError, "delivery_failed"},
		{"config missing", autherr.New(autherr.CodeConfigNotFound, "no key"), http.StatusInternalServerError, "config_not_found"},
		{"unexpected", context.DeadlineExceeded, http.StatusInternalServerError, "internal"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&stubAuthService{err: tc.err})
			w := doJSON(t, r, http.MethodPost, "/auth/phone/request", gin.H{"phone": "+12345678900"}, nil)

			require.Equal(t, tc.wantStatus, w.Code)
			body := decode(t, w)
			require.Equal(t, tc.wantCode, body["code"])
			require.NotEmpty(t, body["error"])
			if tc.wantCode == "internal" {
				require.Equal(t, "internal server error", body["error"])
			}
		})
	}
}

func TestVerifyOTP_OK(t *testing.T) {
	r := newTestRouter(&stubAuthService{result: sampleResult()})
	w := doJSON(t, r, http.MethodPost, "/auth/phone/verify", gin.H{
		"verificationId": "vid-1",
		"code":           "123456",
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.Equal(t, true, body["success"])
	session := body["session"].(map[string]any)
	require.Equal(t, "tok-1", session["token"])
	user := body["user"].(map[string]any)
	require.Equal(t, "ident-1", user["id"])
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	r := newTestRouter(&stubAuthService{err: autherr.New(autherr.CodeInvalidCode, "incorrect verification code")})
	w := doJSON(t, r, http.MethodPost, "/auth/phone/verify", gin.H{
		"verificationId": "vid-1",
		"code":           "000000",
	}, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid_code", decode(t, w)["code"])
}

func TestSync_OK(t *testing.T) {
	stub := &stubAuthService{outcome: &service.SyncOutcome{
		RequiresOTP: true,
		Reason:      service.SyncReasonVerificationRequired,
	}}
	r := newTestRouter(stub)

	w := doJSON(t, r, http.MethodPost, "/auth/phone/sync", gin.H{
		"phone":        "+12345678900",
		"sessionToken": "tok-1",
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.Equal(t, true, body["requiresOtp"])
	require.Equal(t, "verification_required", body["reason"])
	require.Equal(t, "tok-1", stub.lastSync.ExistingToken)
}

func TestSync_MissingPhone(t *testing.T) {
	r := newTestRouter(&stubAuthService{})
	w := doJSON(t, r, http.MethodPost, "/auth/phone/sync", gin.H{"sessionToken": "tok-1"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateSession_TokenSources(t *testing.T) {
	testCases := []struct {
		name   string
		body   gin.H
		path   string
		header map[string]string
	}{
		{"body token", gin.H{"token": "tok-1"}, "/auth/phone/session", nil},
		{"query token", gin.H{}, "/auth/phone/session?token=tok-1", nil},
		{"bearer header", gin.H{}, "/auth/phone/session", map[string]string{"Authorization": "Bearer tok-1"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubAuthService{result: sampleResult()}
			r := newTestRouter(stub)
			w := doJSON(t, r, http.MethodPost, tc.path, tc.body, tc.header)

			require.Equal(t, http.StatusOK, w.Code)
			require.Equal(t, "tok-1", stub.lastToken)
		})
	}
}

func TestValidateSession_ExtendFlag(t *testing.T) {
	stub := &stubAuthService{result: sampleResult()}
	r := newTestRouter(stub)
	w := doJSON(t, r, http.MethodPost, "/auth/phone/session", gin.H{"token": "tok-1", "extend": true}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, stub.lastExtend)
}

func TestValidateSession_ErrorMapping(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid session", autherr.New(autherr.CodeSessionInvalid, "session not found"), http.StatusUnauthorized, "session_invalid"},
		{"access denied", autherr.New(autherr.CodeAccessDenied, "revoked"), http.StatusForbidden, "access_denied"},
		{"unexpected", context.DeadlineExceeded, http.StatusInternalServerError, "internal"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&stubAuthService{err: tc.err})
			w := doJSON(t, r, http.MethodPost, "/auth/phone/session", gin.H{"token": "tok-1"}, nil)

			require.Equal(t, tc.wantStatus, w.Code)
			require.Equal(t, tc.wantCode, decode(t, w)["code"])
		})
	}
}

func TestValidateSession_MissingToken(t *testing.T) {
	r := newTestRouter(&stubAuthService{})
	w := doJSON(t, r, http.MethodPost, "/auth/phone/session", gin.H{}, nil)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "session_invalid", decode(t, w)["code"])
}

func TestRevokeSession_OK(t *testing.T) {
	stub := &stubAuthService{}
	r := newTestRouter(stub)
	w := doJSON(t, r, http.MethodDelete, "/auth/phone/session", gin.H{"token": "tok-1"}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, decode(t, w)["success"])
	require.Equal(t, "tok-1", stub.lastToken)
}

func TestRevokeSession_Unknown(t *testing.T) {
	r := newTestRouter(&stubAuthService{err: autherr.New(autherr.CodeSessionInvalid, "session not found")})
	w := doJSON(t, r, http.MethodDelete, "/auth/phone/session", gin.H{"token": "gone"}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfile_OK(t *testing.T) {
	stub := &stubAuthService{profile: &service.UserView{ID: "ident-1", Phone: "+12345678900"}}
	r := newTestRouter(stub)
	w := doJSON(t, r, http.MethodGet, "/auth/phone/profile?token=tok-1", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	profile := body["profile"].(map[string]any)
	require.Equal(t, "+12345678900", profile["phone"])
	require.Equal(t, "tok-1", stub.lastToken)
}

func TestProfile_BearerHeader(t *testing.T) {
	stub := &stubAuthService{profile: &service.UserView{ID: "ident-1"}}
	r := newTestRouter(stub)
	w := doJSON(t, r, http.MethodGet, "/auth/phone/profile", nil,
		map[string]string{"Authorization": "Bearer tok-9"})

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "tok-9", stub.lastToken)
}

func TestProfile_MissingToken(t *testing.T) {
	r := newTestRouter(&stubAuthService{})
	w := doJSON(t, r, http.MethodGet, "/auth/phone/profile", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
