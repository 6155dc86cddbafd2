package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tiktok-signin-go/internal/backend"
	"tiktok-signin-go/internal/metrics"
)

// Client talks to the backend's token and user-info endpoints. The base URL
// is resolved through the Locator on every call so an override picked up by a
// health probe takes effect immediately.
type Client struct {
	locator *backend.Locator
	http    backend.Doer
	logger  *log.Logger
}

// NewClient creates a backend Client.
func NewClient(locator *backend.Locator, httpClient backend.Doer, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{locator: locator, http: httpClient, logger: logger}
}

func (c *Client) endpoint(ctx context.Context, path string) string {
	return strings.TrimSuffix(c.locator.Resolve(ctx), "/") + path
}

// ExchangeCode exchanges (code, verifier) for tokens at the backend token
// endpoint. An HTTP success without an access token is still an error.
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier string) (*TokenInfo, error) {
	endpoint := c.endpoint(ctx, "/api/tiktok/token/")
	c.logger.Printf("auth: exchanging code for token at %s", endpoint)

	body, err := json.Marshal(map[string]string{
		"code":          code,
		"code_verifier": codeVerifier,
	})
	if err != nil {
		return nil, wrapError(KindUnknown, err, "failed to encode token request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, wrapError(KindUnknown, err, "failed to create token request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.TokenExchangeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, wrapError(KindNetworkFailure, err, "network error: token endpoint unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.remoteError(resp, "token exchange failed")
	}

	var tokenInfo TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&tokenInfo); err != nil {
		return nil, wrapError(KindRemoteRejection, err, "failed to decode token response")
	}
	if tokenInfo.AccessToken == "" {
		return nil, newError(KindRemoteRejection, "failed to obtain access token")
	}
	tokenInfo.ObtainedAt = time.Now()
	return &tokenInfo, nil
}

// FetchUserInfo retrieves the user profile for an access token and open_id.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken, openID string) (*UserInfo, error) {
	params := url.Values{}
	params.Set("access_token", accessToken)
	params.Set("open_id", openID)
	endpoint := c.endpoint(ctx, "/api/tiktok/user-info/") + "?" + params.Encode()
	c.logger.Printf("auth: fetching user info for open_id %s", openID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, wrapError(KindUnknown, err, "failed to create user-info request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, wrapError(KindNetworkFailure, err, "network error: user-info endpoint unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.remoteError(resp, "user-info fetch failed")
	}

	var userInfo UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, wrapError(KindRemoteRejection, err, "failed to decode user-info response")
	}
	if userInfo.OpenID == "" {
		return nil, newError(KindRemoteRejection, "failed to obtain user information")
	}
	return &userInfo, nil
}

// remoteError builds a classified error from a non-success response. The body
// may be a JSON error object or free text; either way the message is matched
// against the provider's prose to recognize expired codes.
func (c *Client) remoteError(resp *http.Response, op string) *Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := strings.TrimSpace(string(raw))

	var payload struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
		Message     string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		switch {
		case payload.Description != "":
			message = payload.Description
		case payload.Error != "":
			message = payload.Error
		case payload.Message != "":
			message = payload.Message
		}
	}
	if message == "" {
		message = resp.Status
	}
	return newError(classifyRemoteMessage(message), "%s (status %d): %s", op, resp.StatusCode, message)
}
