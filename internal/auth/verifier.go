package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrInvalidToken is returned when the identity provider rejects a
// bearer token.
var ErrInvalidToken = errors.New("invalid or expired token")

// Verifier checks a bearer token against the external identity
// provider and returns the subject it belongs to.
type Verifier interface {
	Verify(ctx context.Context, token string) (userID, email string, err error)
}

// HTTPVerifier verifies tokens against a GoTrue-style user endpoint.
type HTTPVerifier struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewHTTPVerifier builds a verifier for the provider at baseURL.
func NewHTTPVerifier(baseURL, serviceKey string) *HTTPVerifier {
	return &HTTPVerifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify asks the provider who the token belongs to.
func (v *HTTPVerifier) Verify(ctx context.Context, token string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return "", "", fmt.Errorf("build identity request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if v.serviceKey != "" {
		req.Header.Set("apikey", v.serviceKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("identity provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", "", ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", "", fmt.Errorf("identity provider status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", "", fmt.Errorf("decode identity response: %w", err)
	}
	if payload.ID == "" {
		return "", "", ErrInvalidToken
	}
	return payload.ID, payload.Email, nil
}
