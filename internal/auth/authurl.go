package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"tiktok-signin-go/internal/backend"
)

// CallbackPath is the backend path the provider redirects back to.
const CallbackPath = "/api/tiktok/callback/"

// AuthRequest is one prepared authorization attempt. The caller decides where
// the verifier and state are persisted; Build does not store anything.
type AuthRequest struct {
	URL          string
	CodeVerifier string
	State        string
}

// URLBuilder composes the provider's authorization URL from the fixed client
// identity and a freshly generated PKCE pair.
type URLBuilder struct {
	clientKey    string
	scope        string
	authorizeURL string
	// redirectURI, when set, pins the redirect target to the value registered
	// with the provider. Otherwise the target follows the resolved backend.
	redirectURI string
	locator     *backend.Locator
}

// NewURLBuilder creates a URLBuilder.
func NewURLBuilder(clientKey, scope, authorizeURL, redirectURI string, locator *backend.Locator) *URLBuilder {
	return &URLBuilder{
		clientKey:    clientKey,
		scope:        scope,
		authorizeURL: authorizeURL,
		redirectURI:  redirectURI,
		locator:      locator,
	}
}

// RedirectURI returns the callback target embedded in authorization URLs.
func (b *URLBuilder) RedirectURI(ctx context.Context) string {
	if b.redirectURI != "" {
		return b.redirectURI
	}
	base := strings.TrimSuffix(b.locator.Resolve(ctx), "/")
	return base + CallbackPath
}

// Build generates a verifier, derives its challenge, generates a state token
// and composes the authorization URL.
func (b *URLBuilder) Build(ctx context.Context) (*AuthRequest, error) {
	verifier := GenerateCodeVerifier()
	challenge, err := GenerateCodeChallenge(verifier)
	if err != nil {
		return nil, fmt.Errorf("failed to derive code challenge: %w", err)
	}
	state := GenerateState()

	params := url.Values{}
	params.Set("client_key", b.clientKey)
	params.Set("response_type", "code")
	params.Set("scope", b.scope)
	params.Set("redirect_uri", b.RedirectURI(ctx))
	params.Set("state", state)
	params.Set("code_challenge", challenge)
	params.Set("code_challenge_method", "S256")

	return &AuthRequest{
		URL:          b.authorizeURL + "?" + params.Encode(),
		CodeVerifier: verifier,
		State:        state,
	}, nil
}
