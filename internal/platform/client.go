// Package platform provides the authenticated HTTP client for the society
// management backend. The backend is authoritative for every visitor record;
// the agent only submits and observes.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// Config holds the configuration for platform API access.
type Config struct {
	// BaseURL is the platform API base URL, including the /api prefix.
	BaseURL string

	// Gate is the gate name stamped on check-ins recorded by this agent.
	Gate string

	// Timeout for API requests.
	Timeout time.Duration
}

// DefaultConfig returns the default configuration, reading from environment
// variables.
func DefaultConfig() Config {
	return Config{
		BaseURL: getEnv("PLATFORM_URL", "http://localhost:8080/api"),
		Gate:    getEnv("GATE_NAME", "Main Gate"),
		Timeout: 30 * time.Second,
	}
}

// getEnv returns an environment variable value or a default if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// APIError is a structured failure returned by the platform.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("platform error (status %d)", e.StatusCode)
}

// Client is an authenticated client for the platform API.
type Client struct {
	config     Config
	session    *Session
	httpClient *http.Client
}

// NewClient creates a new platform API client. The session is the explicit
// credential capability: every outgoing request reads its token, and the
// client never touches ambient global state.
func NewClient(config Config, session *Session) *Client {
	if session == nil {
		session = NewSession()
	}
	return &Client{
		config:  config,
		session: session,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Session returns the session capability used by this client.
func (c *Client) Session() *Session {
	return c.session
}

// Gate returns the configured gate name for this agent.
func (c *Client) Gate() string {
	return c.config.Gate
}

// get performs a GET request and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	full := path
	if len(query) > 0 {
		full = path + "?" + query.Encode()
	}

	req, err := c.newRequest(ctx, http.MethodGet, full, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// post performs a POST request with a JSON body (nil for empty) and decodes
// the JSON response into out (nil to discard).
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, reader)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// do executes the request and decodes either the response body or the
// platform's error envelope.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// decodeError reads the platform's error envelope, falling back to the raw
// body when the envelope does not parse.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = string(bytes.TrimSpace(body))
		if apiErr.Message == "" {
			apiErr.Message = resp.Status
		}
	}
	return apiErr
}

// newRequest creates a new HTTP request with authentication.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
