package auth

import (
	"context"
	"errors"
	"log"
	"time"

	"tiktok-signin-go/internal/metrics"
	"tiktok-signin-go/internal/storage"
)

// Storage keys for flow state. The verifier lives in two slots until the
// token exchange consumes it: the session-scoped primary and a durable
// backup that survives a reload between redirect and callback.
const (
	VerifierKey       = "tiktok_code_verifier"
	VerifierBackupKey = "tiktok_code_verifier_backup"
	StateKey          = "tiktok_auth_state"
	LastAttemptKey    = "tiktok_last_auth_attempt"
	LastAuthURLKey    = "tiktok_last_auth_url"
	ErrorDetailsKey   = "tiktok_error_details"
)

// tokenKey and userKey mirror the session package's fixed names; Begin clears
// them so only one flow attempt's credentials are ever live.
const (
	tokenKey = "tiktok_token"
	userKey  = "tiktok_user"
)

// Result is the outcome of a successfully processed callback. Token and user
// are only ever produced together.
type Result struct {
	TokenInfo *TokenInfo
	UserInfo  *UserInfo
}

// Flow orchestrates one sign-in attempt: it prepares the authorization
// redirect, then turns the provider callback into a token/user pair.
type Flow struct {
	builder *URLBuilder
	client  *Client
	session storage.KV // primary verifier slot
	durable storage.KV // backup slot, state, diagnostics
	logger  *log.Logger
}

// NewFlow creates a Flow.
func NewFlow(builder *URLBuilder, client *Client, session, durable storage.KV, logger *log.Logger) *Flow {
	return &Flow{
		builder: builder,
		client:  client,
		session: session,
		durable: durable,
		logger:  logger,
	}
}

// Begin starts a fresh sign-in attempt. All prior verifiers and tokens are
// cleared first, then the new verifier is stored in both slots with its state
// token alongside. Returns the prepared authorization redirect.
func (f *Flow) Begin(ctx context.Context) (*AuthRequest, error) {
	if err := f.clearAttemptState(ctx); err != nil {
		return nil, err
	}

	req, err := f.builder.Build(ctx)
	if err != nil {
		return nil, err
	}

	if err := f.session.Set(ctx, VerifierKey, req.CodeVerifier); err != nil {
		return nil, err
	}
	if err := f.durable.Set(ctx, VerifierBackupKey, req.CodeVerifier); err != nil {
		return nil, err
	}
	if err := f.durable.Set(ctx, StateKey, req.State); err != nil {
		return nil, err
	}
	// Diagnostics only; failures here must not abort the flow.
	if err := f.durable.Set(ctx, LastAttemptKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		f.logger.Printf("auth: failed to record attempt timestamp: %v", err)
	}
	if err := f.durable.Set(ctx, LastAuthURLKey, req.URL); err != nil {
		f.logger.Printf("auth: failed to record auth URL: %v", err)
	}

	metrics.AuthFlowsStarted.Inc()
	return req, nil
}

// ProcessCallback validates the returned code and state, loads the stored
// verifier, exchanges the pair for tokens and fetches the user profile. The
// verifier is consumed exactly once: both slots are invalidated on success.
func (f *Flow) ProcessCallback(ctx context.Context, code, state string) (*Result, error) {
	if code == "" {
		return nil, newError(KindMissingInput, "no authorization code found in the URL")
	}

	storedState, err := f.durable.Get(ctx, StateKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if storedState == "" || state != storedState {
		return nil, newError(KindStateMismatch, "state token does not match this sign-in attempt")
	}

	verifier, err := f.loadVerifier(ctx)
	if err != nil {
		return nil, err
	}

	tokenInfo, err := f.client.ExchangeCode(ctx, code, verifier)
	if err != nil {
		f.recordError(ctx, err)
		return nil, err
	}

	userInfo, err := f.client.FetchUserInfo(ctx, tokenInfo.AccessToken, tokenInfo.OpenID)
	if err != nil {
		f.recordError(ctx, err)
		return nil, err
	}

	f.invalidateVerifier(ctx)
	return &Result{TokenInfo: tokenInfo, UserInfo: userInfo}, nil
}

// RecoverExpiredCode restarts the flow after an expired authorization code.
// All sign-in storage is cleared, a fresh authorization URL is generated and
// its verifier stored; the returned target is where the user should be sent.
// If regeneration fails the application root is the fallback.
func (f *Flow) RecoverExpiredCode(ctx context.Context) string {
	metrics.ExpiredCodeRestarts.Inc()
	f.logger.Printf("auth: authorization code expired, re-initiating sign-in immediately")

	req, err := f.Begin(ctx)
	if err != nil {
		f.logger.Printf("auth: failed to re-initiate sign-in: %v", err)
		return "/"
	}
	return req.URL
}

// loadVerifier reads the verifier from the primary slot, falling back to the
// durable backup. Absence of both ends the attempt before any network call.
func (f *Flow) loadVerifier(ctx context.Context) (string, error) {
	verifier, err := f.session.Get(ctx, VerifierKey)
	if err == nil && verifier != "" {
		return verifier, nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}
	verifier, err = f.durable.Get(ctx, VerifierBackupKey)
	if err == nil && verifier != "" {
		return verifier, nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}
	return "", newError(KindMissingInput, "missing code verifier, please try signing in again")
}

// clearAttemptState removes every prior attempt's verifiers, state and
// credentials so only one attempt is live at a time.
func (f *Flow) clearAttemptState(ctx context.Context) error {
	if err := f.session.Delete(ctx, VerifierKey); err != nil {
		return err
	}
	for _, key := range []string{VerifierBackupKey, StateKey, ErrorDetailsKey, LastAttemptKey, tokenKey, userKey} {
		if err := f.durable.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (f *Flow) invalidateVerifier(ctx context.Context) {
	if err := f.session.Delete(ctx, VerifierKey); err != nil {
		f.logger.Printf("auth: failed to clear primary verifier: %v", err)
	}
	if err := f.durable.Delete(ctx, VerifierBackupKey); err != nil {
		f.logger.Printf("auth: failed to clear backup verifier: %v", err)
	}
	if err := f.durable.Delete(ctx, StateKey); err != nil {
		f.logger.Printf("auth: failed to clear state token: %v", err)
	}
}

func (f *Flow) recordError(ctx context.Context, flowErr error) {
	if err := f.durable.Set(ctx, ErrorDetailsKey, flowErr.Error()); err != nil {
		f.logger.Printf("auth: failed to record error details: %v", err)
	}
}
