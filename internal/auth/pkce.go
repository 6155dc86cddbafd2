package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GenerateCodeVerifier creates a PKCE code verifier: two UUIDs with the
// separators stripped from the second. The result is 68 characters from the
// unreserved set, inside the 43-128 range the grammar requires.
func GenerateCodeVerifier() string {
	return uuid.NewString() + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GenerateCodeChallenge derives the code challenge from a verifier: SHA-256
// over the verifier bytes, base64url-encoded without padding. Byte-exact and
// deterministic; this is exactly what the authorization server recomputes.
func GenerateCodeChallenge(verifier string) (string, error) {
	if verifier == "" {
		return "", fmt.Errorf("code verifier cannot be empty")
	}
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:]), nil
}

// GenerateState creates a short random anti-forgery token. Only entropy
// matters here, there is no structural contract.
func GenerateState() string {
	b := make([]byte, 9)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
