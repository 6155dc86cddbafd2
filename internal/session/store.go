// Package session persists the signed-in token/user pair and implements the
// escalating reset operations exposed to the UI.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"tiktok-signin-go/internal/auth"
	"tiktok-signin-go/internal/storage"
)

// Fixed durable keys for the credential pair.
const (
	TokenKey = "tiktok_token"
	UserKey  = "tiktok_user"
)

// providerMarker selects the durable keys swept by ClearSession.
const providerMarker = "tiktok"

// ErrNoSession is returned by Load when no intact session exists.
var ErrNoSession = errors.New("no session")

// Store keeps the TokenInfo/UserInfo pair in durable storage. The pair is
// set and cleared together; a token without its user never exists.
type Store struct {
	durable storage.KV
	session storage.KV
	logger  *log.Logger
}

// NewStore creates a session Store over the two storage areas.
func NewStore(durable, session storage.KV, logger *log.Logger) *Store {
	return &Store{durable: durable, session: session, logger: logger}
}

// Save persists the credential pair. Both halves are required.
func (s *Store) Save(ctx context.Context, token *auth.TokenInfo, user *auth.UserInfo) error {
	if token == nil || user == nil {
		return errors.New("token and user must be saved together")
	}
	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return err
	}
	userJSON, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := s.durable.Set(ctx, TokenKey, string(tokenJSON)); err != nil {
		return err
	}
	if err := s.durable.Set(ctx, UserKey, string(userJSON)); err != nil {
		// Roll the token back rather than leave half a session behind.
		if delErr := s.durable.Delete(ctx, TokenKey); delErr != nil {
			s.logger.Printf("session: failed to roll back token after save error: %v", delErr)
		}
		return err
	}
	return nil
}

// Load returns the stored pair, or ErrNoSession when either half is absent.
// Malformed stored JSON is recovered from by discarding the corrupted
// entries; it never propagates to the caller.
func (s *Store) Load(ctx context.Context) (*auth.TokenInfo, *auth.UserInfo, error) {
	tokenJSON, err := s.durable.Get(ctx, TokenKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrNoSession
		}
		return nil, nil, err
	}
	userJSON, err := s.durable.Get(ctx, UserKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrNoSession
		}
		return nil, nil, err
	}

	var token auth.TokenInfo
	var user auth.UserInfo
	if err := json.Unmarshal([]byte(tokenJSON), &token); err != nil {
		s.logger.Printf("session: discarding corrupted session data: %v", err)
		s.discard(ctx)
		return nil, nil, ErrNoSession
	}
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		s.logger.Printf("session: discarding corrupted session data: %v", err)
		s.discard(ctx)
		return nil, nil, ErrNoSession
	}
	return &token, &user, nil
}

// Logout clears the credential pair only.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.durable.Delete(ctx, TokenKey); err != nil {
		return err
	}
	return s.durable.Delete(ctx, UserKey)
}

// ClearSession removes the credential pair, the verifier slots, every durable
// key whose name contains the provider marker (case-insensitive) and the
// whole session-scoped store. Unrelated durable keys survive.
func (s *Store) ClearSession(ctx context.Context) error {
	keys, err := s.durable.Keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if strings.Contains(strings.ToLower(key), providerMarker) {
			if err := s.durable.Delete(ctx, key); err != nil {
				return err
			}
		}
	}
	return s.session.Clear(ctx)
}

// HardReset wipes both storage areas entirely. Callers must gate this behind
// an explicit user confirmation.
func (s *Store) HardReset(ctx context.Context) error {
	if err := s.durable.Clear(ctx); err != nil {
		return err
	}
	return s.session.Clear(ctx)
}

func (s *Store) discard(ctx context.Context) {
	if err := s.durable.Delete(ctx, TokenKey); err != nil {
		s.logger.Printf("session: failed to discard token entry: %v", err)
	}
	if err := s.durable.Delete(ctx, UserKey); err != nil {
		s.logger.Printf("session: failed to discard user entry: %v", err)
	}
}
