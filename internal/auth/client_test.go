package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ExchangeCode(t *testing.T) {
	t.Run("successful exchange", func(t *testing.T) {
		var gotBody map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/api/tiktok/token/", r.URL.Path)
			require.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token":  "act.test",
				"open_id":       "open-123",
				"refresh_token": "rft.test",
				"expires_in":    86400,
				"scope":         "user.info.basic",
				"token_type":    "Bearer",
			})
		}))
		defer server.Close()

		client := NewClient(testLocator(server.URL), http.DefaultClient, testLogger())
		token, err := client.ExchangeCode(context.Background(), "code-abc", "verifier-xyz")
		require.NoError(t, err)

		assert.Equal(t, "code-abc", gotBody["code"])
		assert.Equal(t, "verifier-xyz", gotBody["code_verifier"])
		assert.Equal(t, "act.test", token.AccessToken)
		assert.Equal(t, "open-123", token.OpenID)
		assert.False(t, token.ObtainedAt.IsZero())
		assert.True(t, token.Valid())
	})

	t.Run("success status without access token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"open_id": "open-123"})
		}))
		defer server.Close()

		client := NewClient(testLocator(server.URL), http.DefaultClient, testLogger())
		token, err := client.ExchangeCode(context.Background(), "code-abc", "verifier-xyz")

		assert.Nil(t, token)
		assert.Equal(t, KindRemoteRejection, KindOf(err))
	})

	t.Run("expired code is classified", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{
				"error":             "invalid_grant",
				"error_description": "authorization code expired, try again",
			})
		}))
		defer server.Close()

		client := NewClient(testLocator(server.URL), http.DefaultClient, testLogger())
		_, err := client.ExchangeCode(context.Background(), "code-abc", "verifier-xyz")

		assert.Equal(t, KindExpiredCode, KindOf(err))
	})

	t.Run("rejection with free-text body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream exploded"))
		}))
		defer server.Close()

		client := NewClient(testLocator(server.URL), http.DefaultClient, testLogger())
		_, err := client.ExchangeCode(context.Background(), "code-abc", "verifier-xyz")

		assert.Equal(t, KindRemoteRejection, KindOf(err))
		assert.Contains(t, err.Error(), "upstream exploded")
	})

	t.Run("unreachable backend", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // immediately, so the address refuses connections

		client := NewClient(testLocator(server.URL), http.DefaultClient, testLogger())
		_, err := client.ExchangeCode(context.Background(), "code-abc", "verifier-xyz")

		assert.Equal(t, KindNetworkFailure, KindOf(err))
	})
}

func TestClient_FetchUserInfo(t *testing.T) {
	t.Run("successful fetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodGet, r.Method)
			require.Equal(t, "/api/tiktok/user-info/", r.URL.Path)
			require.Equal(t, "act.test", r.URL.Query().Get("access_token"))
			require.Equal(t, "open-123", r.URL.Query().Get("open_id"))

			json.NewEncoder(w).Encode(map[string]string{
				"open_id":      "open-123",
				"union_id":     "union-456",
				"display_name": "Test User",
				"avatar_url":   "https://example.com/avatar.jpg",
			})
		}))
		defer server.Close()

		client := NewClient(testLocator(server.URL), http.DefaultClient, testLogger())
		user, err := client.FetchUserInfo(context.Background(), "act.test", "open-123")
		require.NoError(t, err)

		assert.Equal(t, "open-123", user.OpenID)
		assert.Equal(t, "Test User", user.DisplayName)
	})

	t.Run("success status without open_id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"display_name": "nobody"})
		}))
		defer server.Close()

		client := NewClient(testLocator(server.URL), http.DefaultClient, testLogger())
		user, err := client.FetchUserInfo(context.Background(), "act.test", "open-123")

		assert.Nil(t, user)
		assert.Equal(t, KindRemoteRejection, KindOf(err))
	})
}
