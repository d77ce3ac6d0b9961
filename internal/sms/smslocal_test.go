package sms

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSMSLocalClient_Send(t *testing.T) {
	var captured struct {
		auth    string
		payload map[string]any
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured.payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewSMSLocalClient("key-123", srv.URL, "CHATAPP")
	if err := client.Send(context.Background(), "+12345678900", "Your verification code is 111111."); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if captured.auth != "key-123" {
		t.Errorf("authorization header = %q, want the api key", captured.auth)
	}
	if captured.payload["numbers"] != "+12345678900" {
		t.Errorf("numbers = %v, want the destination", captured.payload["numbers"])
	}
	if captured.payload["route"] != "otp" {
		t.Errorf("route = %v, want otp", captured.payload["route"])
	}
	if captured.payload["sender_id"] != "CHATAPP" {
		t.Errorf("sender_id = %v, want CHATAPP", captured.payload["sender_id"])
	}
}

func TestSMSLocalClient_MissingAPIKey(t *testing.T) {
	client := NewSMSLocalClient("", "", "")
	err := client.Send(context.Background(), "+12345678900", "msg")

	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeliveryError, got %T", err)
	}
	if !de.Unauthorized() {
		t.Errorf("missing key should report unauthorized, got status %d", de.Status)
	}
}

func TestSMSLocalClient_ProviderError(t *testing.T) {
	testCases := []struct {
		name         string
		status       int
		unauthorized bool
	}{
		{"server error", http.StatusInternalServerError, false},
		{"unauthorized", http.StatusUnauthorized, true},
		{"forbidden", http.StatusForbidden, true},
		{"rate limited", http.StatusTooManyRequests, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "provider says no", tc.status)
			}))
			defer srv.Close()

			client := NewSMSLocalClient("key", srv.URL, "")
			err := client.Send(context.Background(), "+12345678900", "msg")

			var de *DeliveryError
			if !errors.As(err, &de) {
				t.Fatalf("expected DeliveryError, got %T", err)
			}
			if de.Status != tc.status {
				t.Errorf("status = %d, want %d", de.Status, tc.status)
			}
			if de.Unauthorized() != tc.unauthorized {
				t.Errorf("Unauthorized() = %v, want %v", de.Unauthorized(), tc.unauthorized)
			}
		})
	}
}

func TestSMSLocalClient_TransportError(t *testing.T) {
	client := NewSMSLocalClient("key", "http://127.0.0.1:1", "")
	err := client.Send(context.Background(), "+12345678900", "msg")

	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeliveryError, got %T", err)
	}
	if de.Unauthorized() {
		t.Error("transport failure must not be treated as a credential problem")
	}
}
