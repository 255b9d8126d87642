package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spec-kit/vocab-service/internal/domain"
)

// HostedDirectory talks to the hosted identity provider's REST API.
// The service key authorizes admin lookups; end-user operations use the
// anonymous surface the provider exposes.
type HostedDirectory struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewHostedDirectory builds a client with a bounded request timeout.
func NewHostedDirectory(baseURL, serviceKey string) *HostedDirectory {
	return &HostedDirectory{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type hostedUser struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	EmailConfirmedAt string `json:"email_confirmed_at"`
	CreatedAt        string `json:"created_at"`
}

func (u hostedUser) toIdentity() *domain.Identity {
	identity := &domain.Identity{
		ID:             u.ID,
		Email:          u.Email,
		EmailConfirmed: u.EmailConfirmedAt != "",
	}
	if t, err := time.Parse(time.RFC3339, u.CreatedAt); err == nil {
		identity.CreatedAt = t
	}
	return identity
}

// CreateIdentity signs up a new user, stashing display name and requested
// role as metadata for the provider's provisioning trigger.
func (d *HostedDirectory) CreateIdentity(ctx context.Context, in NewIdentity) (*domain.Identity, error) {
	payload := map[string]any{
		"email": in.Email,
		"data": map[string]any{
			"display_name":   in.DisplayName,
			"requested_role": string(in.Role),
		},
	}
	if in.External {
		payload["email_confirm"] = true
	} else {
		payload["password"] = in.Password
	}

	var user hostedUser
	status, err := d.doJSON(ctx, http.MethodPost, "/auth/v1/signup", payload, &user)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		return nil, ErrDuplicateIdentity
	case status >= 400:
		return nil, fmt.Errorf("directory signup: status %d", status)
	}
	return user.toIdentity(), nil
}

// VerifyPassword exchanges credentials for a provider session; only the
// identity is surfaced.
func (d *HostedDirectory) VerifyPassword(ctx context.Context, email, password string) (*domain.Identity, error) {
	payload := map[string]any{"email": email, "password": password}

	var result struct {
		User hostedUser `json:"user"`
	}
	status, err := d.doJSON(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", payload, &result)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		return nil, ErrInvalidCredentials
	case status >= 400:
		return nil, fmt.Errorf("directory token exchange: status %d", status)
	}
	return result.User.toIdentity(), nil
}

// FindByEmail uses the admin surface to look up an identity.
func (d *HostedDirectory) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	path := "/auth/v1/admin/users?email=" + url.QueryEscape(email)

	var result struct {
		Users []hostedUser `json:"users"`
	}
	status, err := d.doJSON(ctx, http.MethodGet, path, nil, &result)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, fmt.Errorf("directory user lookup: status %d", status)
	}
	for _, user := range result.Users {
		if strings.EqualFold(user.Email, email) {
			return user.toIdentity(), nil
		}
	}
	return nil, ErrIdentityNotFound
}

// SendPasswordReset delegates reset token generation and email delivery
// to the provider.
func (d *HostedDirectory) SendPasswordReset(ctx context.Context, email, redirectURL string) error {
	payload := map[string]any{"email": email}
	path := "/auth/v1/recover"
	if redirectURL != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectURL)
	}
	status, err := d.doJSON(ctx, http.MethodPost, path, payload, nil)
	if err != nil {
		return err
	}
	if status >= 400 {
		return fmt.Errorf("directory recover: status %d", status)
	}
	return nil
}

// ResendVerification asks the provider to resend the signup confirmation.
func (d *HostedDirectory) ResendVerification(ctx context.Context, email string) error {
	payload := map[string]any{"type": "signup", "email": email}
	status, err := d.doJSON(ctx, http.MethodPost, "/auth/v1/resend", payload, nil)
	if err != nil {
		return err
	}
	if status >= 400 {
		return fmt.Errorf("directory resend: status %d", status)
	}
	return nil
}

// SignOut invalidates the provider-side session for the given token.
func (d *HostedDirectory) SignOut(ctx context.Context, sessionToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return err
	}
	d.setHeaders(req)
	if sessionToken != "" {
		req.Header.Set("Authorization", "Bearer "+sessionToken)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("directory logout: status %d", resp.StatusCode)
	}
	return nil
}

func (d *HostedDirectory) doJSON(ctx context.Context, method, path string, payload any, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, body)
	if err != nil {
		return 0, err
	}
	d.setHeaders(req)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 400 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode directory response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (d *HostedDirectory) setHeaders(req *http.Request) {
	req.Header.Set("apikey", d.serviceKey)
	if req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+d.serviceKey)
	}
}
