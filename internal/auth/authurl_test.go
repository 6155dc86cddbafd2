package auth

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLBuilder_Build(t *testing.T) {
	builder := NewURLBuilder("test-client-key", "user.info.basic",
		"https://www.tiktok.com/v2/auth/authorize/", "", testLocator("https://backend.example"))

	req, err := builder.Build(context.Background())
	require.NoError(t, err)

	parsed, err := url.Parse(req.URL)
	require.NoError(t, err)
	params := parsed.Query()

	assert.Equal(t, "www.tiktok.com", parsed.Host)
	assert.Equal(t, "/v2/auth/authorize/", parsed.Path)
	assert.Equal(t, "test-client-key", params.Get("client_key"))
	assert.Equal(t, "code", params.Get("response_type"))
	assert.Equal(t, "user.info.basic", params.Get("scope"))
	assert.Equal(t, "S256", params.Get("code_challenge_method"))
	assert.Equal(t, "https://backend.example/api/tiktok/callback/", params.Get("redirect_uri"))
	assert.Equal(t, req.State, params.Get("state"))

	// The embedded challenge must be exactly the S256 derivation of the
	// verifier handed back to the caller.
	wantChallenge, err := GenerateCodeChallenge(req.CodeVerifier)
	require.NoError(t, err)
	assert.Equal(t, wantChallenge, params.Get("code_challenge"))
}

func TestURLBuilder_RedirectURI(t *testing.T) {
	t.Run("derived from the resolved backend", func(t *testing.T) {
		builder := NewURLBuilder("k", "s", "https://p.example/auth", "", testLocator("https://backend.example/"))
		assert.Equal(t, "https://backend.example/api/tiktok/callback/", builder.RedirectURI(context.Background()))
	})

	t.Run("pinned value wins", func(t *testing.T) {
		builder := NewURLBuilder("k", "s", "https://p.example/auth",
			"https://registered.example/cb", testLocator("https://backend.example"))
		assert.Equal(t, "https://registered.example/cb", builder.RedirectURI(context.Background()))
	})
}

func TestURLBuilder_FreshPairPerAttempt(t *testing.T) {
	builder := NewURLBuilder("k", "s", "https://p.example/auth", "", testLocator("https://backend.example"))

	first, err := builder.Build(context.Background())
	require.NoError(t, err)
	second, err := builder.Build(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.CodeVerifier, second.CodeVerifier)
	assert.NotEqual(t, first.State, second.State)
}
