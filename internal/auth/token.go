package auth

import (
	"time"

	"golang.org/x/oauth2"
)

// TokenInfo is the token payload returned by the backend token exchange.
type TokenInfo struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	OpenID           string `json:"open_id"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	Scope            string `json:"scope"`
	TokenType        string `json:"token_type"`

	// ObtainedAt anchors ExpiresIn to wall-clock time. Set by the exchange.
	ObtainedAt time.Time `json:"obtained_at,omitempty"`
}

// UserInfo is the profile payload returned by the backend user-info endpoint.
type UserInfo struct {
	OpenID          string `json:"open_id"`
	UnionID         string `json:"union_id"`
	AvatarURL       string `json:"avatar_url"`
	AvatarURL100    string `json:"avatar_url_100"`
	AvatarURL200    string `json:"avatar_url_200"`
	DisplayName     string `json:"display_name"`
	ProfileDeepLink string `json:"profile_deep_link"`
}

// OAuth2Token converts the backend payload to the standard token type.
func (t *TokenInfo) OAuth2Token() *oauth2.Token {
	obtained := t.ObtainedAt
	if obtained.IsZero() {
		obtained = time.Now()
	}
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
	}
	if t.ExpiresIn > 0 {
		tok.Expiry = obtained.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return tok
}

// Valid reports whether the access token exists and has not expired.
func (t *TokenInfo) Valid() bool {
	if t == nil {
		return false
	}
	return t.OAuth2Token().Valid()
}
