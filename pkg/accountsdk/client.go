package accountsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the pharmacy account API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Session is an authenticated handle returned by Login.
type Session struct {
	client   *Client
	token    string
	Identity LoginResponse
}

// NewSession wraps a token obtained earlier, e.g. restored by the shell.
func (c *Client) NewSession(token string) *Session {
	return &Session{client: c, token: token}
}

// Token returns the bearer token of the session.
func (s *Session) Token() string { return s.token }

func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// do sends a JSON request. A non-empty token is sent as a bearer credential.
func (c *Client) do(ctx context.Context, method, path, token string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// decodeJSON decodes a JSON response into target, or returns the *APIError
// carried by a response with an unexpected status.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, bodyBytes)
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func call[T any](ctx context.Context, c *Client, method, path, token string, in any, expected int) (*T, error) {
	resp, err := c.do(ctx, method, path, token, in)
	if err != nil {
		return nil, err
	}

	var out T
	if err := decodeJSON(resp, &out, expected); err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup registers an account, or starts a verified signup when the server
// requires email verification (Pending is then true).
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/signup", "", req)
	if err != nil {
		return nil, err
	}

	var out SignupResponse
	// 201 when the account was created, 202 when it awaits verification.
	expected := http.StatusCreated
	if resp.StatusCode == http.StatusAccepted {
		expected = http.StatusAccepted
	}
	if err := decodeJSON(resp, &out, expected); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifySignup completes a pending signup with the mailed code.
func (c *Client) VerifySignup(ctx context.Context, req SignupRequest, otp string) (*SignupResponse, error) {
	return call[SignupResponse](ctx, c, http.MethodPost, "/v1/signup/verify", "",
		VerifySignupRequest{SignupRequest: req, OTP: otp}, http.StatusCreated)
}

// Login authenticates against the credential of the given role.
func (c *Client) Login(ctx context.Context, username, password, role string) (*Session, error) {
	out, err := call[LoginResponse](ctx, c, http.MethodPost, "/v1/login", "",
		LoginRequest{Username: username, Password: password, Role: role}, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &Session{client: c, token: out.Token, Identity: *out}, nil
}

// ForgotPassword mails a reset code to the account's email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	_, err := call[MessageResponse](ctx, c, http.MethodPost, "/v1/password/forgot", "",
		ForgotPasswordRequest{Email: email}, http.StatusOK)
	return err
}

// ResetPassword replaces the password of one role using a mailed code.
func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	_, err := call[MessageResponse](ctx, c, http.MethodPost, "/v1/password/reset", "", req, http.StatusOK)
	return err
}

// SessionState reports whether anyone is logged in on the service.
func (c *Client) SessionState(ctx context.Context) (*SessionResponse, error) {
	return call[SessionResponse](ctx, c, http.MethodGet, "/v1/session", "", nil, http.StatusOK)
}

// GetLiveness checks if the service is alive.
func (c *Client) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return call[HealthResponse](ctx, c, http.MethodGet, "/livez", "", nil, http.StatusOK)
}

// GetReadiness checks if the service is ready.
func (c *Client) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return call[HealthResponse](ctx, c, http.MethodGet, "/readyz", "", nil, http.StatusOK)
}

// Profile returns the logged-in account.
func (s *Session) Profile(ctx context.Context) (*ProfileResponse, error) {
	return call[ProfileResponse](ctx, s.client, http.MethodGet, "/v1/me", s.token, nil, http.StatusOK)
}

// UpdateProfile changes the present fields of the logged-in account.
func (s *Session) UpdateProfile(ctx context.Context, req ProfileUpdateRequest) (*ProfileResponse, error) {
	return call[ProfileResponse](ctx, s.client, http.MethodPatch, "/v1/me", s.token, req, http.StatusOK)
}

// Logout ends the session on the service.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.client.do(ctx, http.MethodPost, "/v1/logout", s.token, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return parseErrorResponse(resp, body)
	}
	return nil
}
