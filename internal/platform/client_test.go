package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/society-gate/agent/internal/visitor"
)

func newTestClient(t *testing.T, handler http.Handler, session *Session) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		BaseURL: srv.URL,
		Gate:    "Test Gate",
		Timeout: 5 * time.Second,
	}, session)
}

func TestRequestsCarryBearerToken(t *testing.T) {
	var got string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(visitor.Log{LogID: 1})
	}), NewSessionWithToken("abc123"))

	if _, err := client.GetVisitorLog(context.Background(), 1); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if got != "Bearer abc123" {
		t.Errorf("Authorization = %q, want Bearer abc123", got)
	}
}

func TestUnauthenticatedRequestsOmitHeader(t *testing.T) {
	var got string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(visitor.Log{LogID: 1})
	}), NewSession())

	if _, err := client.GetVisitorLog(context.Background(), 1); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if got != "" {
		t.Errorf("Authorization = %q, want empty", got)
	}
}

func TestErrorEnvelopeDecoding(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "not_found",
			"message": "Visitor log not found",
		})
	}), NewSessionWithToken("abc123"))

	_, err := client.GetVisitorLog(context.Background(), 999)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", apiErr.StatusCode)
	}
	if apiErr.Code != "not_found" {
		t.Errorf("code = %q, want not_found", apiErr.Code)
	}
	if apiErr.Message != "Visitor log not found" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestErrorFallsBackToRawBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}), NewSessionWithToken("abc123"))

	_, err := client.GetVisitorLog(context.Background(), 1)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "upstream exploded" {
		t.Errorf("message = %q, want raw body", apiErr.Message)
	}
}

func TestLoginStoresToken(t *testing.T) {
	session := NewSession()
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var creds struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&creds)
		if creds.Email != "gate@example.com" {
			t.Errorf("email = %q", creds.Email)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"token": "issued-token"})
	}), session)

	if err := client.Login(context.Background(), "gate@example.com", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !session.Authenticated() {
		t.Error("session should be authenticated after login")
	}
	if session.Token() != "issued-token" {
		t.Errorf("token = %q", session.Token())
	}

	client.Logout()
	if session.Authenticated() {
		t.Error("session should be cleared after logout")
	}
}

func TestSessionTracksJWTExpiry(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "gate@example.com",
		"exp": expiry.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}

	session := NewSessionWithToken(signed)
	if !session.ExpiresAt().Equal(expiry) {
		t.Errorf("expiry = %s, want %s", session.ExpiresAt(), expiry)
	}
	if session.Expired(time.Now()) {
		t.Error("token should not be expired yet")
	}
	if !session.Expired(expiry.Add(time.Minute)) {
		t.Error("token should report expired past its exp claim")
	}
}

func TestOpaqueTokenNeverExpires(t *testing.T) {
	session := NewSessionWithToken("not-a-jwt")
	if !session.ExpiresAt().IsZero() {
		t.Errorf("expiry = %s, want zero", session.ExpiresAt())
	}
	if session.Expired(time.Now().Add(1000 * time.Hour)) {
		t.Error("opaque tokens have no expiry to pass")
	}
}
