package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session holds the bearer token for the platform API. It is set once at
// login and cleared at logout; every outgoing request reads it. Safe for
// concurrent use.
type Session struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// NewSession creates an empty, unauthenticated session.
func NewSession() *Session {
	return &Session{}
}

// NewSessionWithToken creates a session seeded with an existing token,
// e.g. one injected through the environment for headless deployments.
func NewSessionWithToken(token string) *Session {
	s := &Session{}
	s.SetToken(token)
	return s
}

// Token returns the current bearer token, or "" when unauthenticated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken stores a bearer token and records its expiry from the JWT claims
// when present. Tokens that do not parse as JWTs are kept with no expiry.
func (s *Session) SetToken(token string) {
	var expiresAt time.Time
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			expiresAt = exp.Time
		}
	}

	s.mu.Lock()
	s.token = token
	s.expiresAt = expiresAt
	s.mu.Unlock()
}

// Clear discards the token. Called at logout.
func (s *Session) Clear() {
	s.mu.Lock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}

// Authenticated reports whether a token is present.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// ExpiresAt returns the token expiry, or the zero time when unknown.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Expired reports whether the token's expiry has passed. Tokens with no
// recorded expiry never report expired.
func (s *Session) Expired(now time.Time) bool {
	exp := s.ExpiresAt()
	return !exp.IsZero() && now.After(exp)
}

// loginRequest is the credential payload for the platform login endpoint.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is the platform's login response.
type loginResponse struct {
	Token string `json:"token"`
}

// Login authenticates the gate account against the platform and stores the
// issued token in the session.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var resp loginResponse
	if err := c.post(ctx, "/auth/login", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if resp.Token == "" {
		return fmt.Errorf("login: platform returned no token")
	}
	c.session.SetToken(resp.Token)
	return nil
}

// Logout clears the session token. The platform keeps no server-side
// session state for gate accounts, so no request is issued.
func (c *Client) Logout() {
	c.session.Clear()
}
