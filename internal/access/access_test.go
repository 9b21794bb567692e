package access

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/society-gate/agent/internal/platform"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		token string
		kind  TokenKind
		ok    bool
	}{
		{"004213", KindPasscode, true},
		{" 004213 ", KindPasscode, true},
		{"VISITOR:42:Alice", KindQR, true},
		{"RESIDENT:7:Ravi Kumar", KindQR, true},
		{"HELP:3:Maid:extra", KindQR, true},
		{"00421", "", false},
		{"0042134", "", false},
		{"00421a", "", false},
		{"VISITOR:42", "", false},
		{":42:Alice", "", false},
		{"VISITOR::Alice", "", false},
		{"", "", false},
		{"hello", "", false},
	}

	for _, tt := range tests {
		kind, err := Classify(tt.token)
		if tt.ok {
			if err != nil {
				t.Errorf("Classify(%q) failed: %v", tt.token, err)
				continue
			}
			if kind != tt.kind {
				t.Errorf("Classify(%q) = %s, want %s", tt.token, kind, tt.kind)
			}
		} else if !errors.Is(err, ErrMalformedToken) {
			t.Errorf("Classify(%q) = %v, want ErrMalformedToken", tt.token, err)
		}
	}
}

func newTestService(t *testing.T, handler http.Handler) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := platform.NewClient(platform.Config{
		BaseURL: srv.URL,
		Gate:    "Test Gate",
		Timeout: 5 * time.Second,
	}, platform.NewSessionWithToken("test-token"))
	return NewService(client, nil, nil)
}

func TestValidateMalformedTokenStaysLocal(t *testing.T) {
	var requests int64
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
	}))

	if _, err := svc.Validate(context.Background(), "not-a-token"); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected ErrMalformedToken, got %v", err)
	}
	if n := atomic.LoadInt64(&requests); n != 0 {
		t.Errorf("malformed token issued %d requests, want 0", n)
	}
}

func TestValidateGranted(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/access/validate-qr" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Token string `json:"token"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Token != "004213" {
			t.Errorf("token = %q, want 004213", req.Token)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(platform.AccessResult{
			Name:       "Bob",
			Type:       "VISITOR",
			AccessType: "ENTRY",
			Status:     "GRANTED",
		})
	}))

	result, err := svc.Validate(context.Background(), "004213")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if result.Status != "GRANTED" || result.Name != "Bob" {
		t.Errorf("result = %+v", result)
	}
}

func TestValidateDeniedSurfacesVerdict(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "access_denied",
			"message": "Pre-approval expired",
		})
	}))

	_, err := svc.Validate(context.Background(), "004213")

	var apiErr *platform.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected platform APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", apiErr.StatusCode)
	}
	if apiErr.Message != "Pre-approval expired" {
		t.Errorf("message = %q", apiErr.Message)
	}
}
