package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tiktok-signin-go/internal/auth"
	"tiktok-signin-go/internal/metrics"
	"tiktok-signin-go/internal/scheduler"
)

//
// Authentication handlers
//

// handleLogin starts a sign-in flow and redirects the user to the provider's
// consent page. The flow stores the verifier; we only forward the redirect.
func (a *Application) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := a.Flow.Begin(r.Context())
	if err != nil {
		a.Logger.Printf("login error: %v", err)
		http.Error(w, "Failed to start sign-in", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, req.URL, http.StatusSeeOther)
}

// handleAuthCallback handles the redirect back from the provider. It
// exchanges the authorization code, persists the resulting session and
// auto-restarts the flow when the code already expired.
func (a *Application) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	result, err := a.Flow.ProcessCallback(r.Context(), code, state)
	if err != nil {
		a.Logger.Printf("auth callback error: %v", err)
		switch auth.KindOf(err) {
		case auth.KindExpiredCode:
			metrics.CallbacksProcessed.WithLabelValues("expired").Inc()
			target := a.Flow.RecoverExpiredCode(r.Context())
			http.Redirect(w, r, target, http.StatusSeeOther)
		case auth.KindNetworkFailure:
			metrics.CallbacksProcessed.WithLabelValues("network_failure").Inc()
			healthy := a.Locator.ProbeHealth(r.Context(), a.Config.Backend.ProbeTimeout.Duration)
			if healthy {
				http.Error(w, "Backend is reachable but the sign-in failed; please try again", http.StatusBadGateway)
				return
			}
			http.Error(w, "Backend server is unreachable; please try again later", http.StatusBadGateway)
		case auth.KindMissingInput, auth.KindStateMismatch:
			metrics.CallbacksProcessed.WithLabelValues("rejected").Inc()
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			metrics.CallbacksProcessed.WithLabelValues("error").Inc()
			http.Error(w, "Authentication failed", http.StatusBadGateway)
		}
		return
	}

	if err := a.Session.Save(r.Context(), result.TokenInfo, result.UserInfo); err != nil {
		a.Logger.Printf("failed to persist session: %v", err)
		http.Error(w, "Failed to persist session", http.StatusInternalServerError)
		return
	}

	metrics.CallbacksProcessed.WithLabelValues("success").Inc()
	http.Redirect(w, r, "/me", http.StatusSeeOther)
}

// handleLogout clears the credential pair only.
func (a *Application) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.Session.Logout(r.Context()); err != nil {
		a.Logger.Printf("logout error: %v", err)
		http.Error(w, "Failed to log out", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleClearSession clears credentials, verifiers and every provider-scoped
// durable key, leaving unrelated preferences untouched.
func (a *Application) handleClearSession(w http.ResponseWriter, r *http.Request) {
	if err := a.Session.ClearSession(r.Context()); err != nil {
		a.Logger.Printf("clear session error: %v", err)
		http.Error(w, "Failed to clear session", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/login?reset=session&ts="+timestamp(), http.StatusSeeOther)
}

// handleHardReset wipes both storage areas. Destructive, so it requires an
// explicit confirm parameter.
func (a *Application) handleHardReset(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "yes" {
		http.Error(w, "Hard reset requires ?confirm=yes", http.StatusBadRequest)
		return
	}
	if err := a.Session.HardReset(r.Context()); err != nil {
		a.Logger.Printf("hard reset error: %v", err)
		http.Error(w, "Failed to reset", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/login?reset=hard&ts="+timestamp(), http.StatusSeeOther)
}

//
// Application handlers
//

// handleMe returns the signed-in user's profile and token validity.
func (a *Application) handleMe(w http.ResponseWriter, r *http.Request) {
	token, user, ok := sessionFromContext(r)
	if !ok {
		http.Error(w, "Could not load session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":        user,
		"token_valid": token.Valid(),
		"scope":       token.Scope,
	})
}

// handlePosts lists or schedules posts for the signed-in account.
func (a *Application) handlePosts(w http.ResponseWriter, r *http.Request) {
	_, user, ok := sessionFromContext(r)
	if !ok {
		http.Error(w, "Could not load session", http.StatusInternalServerError)
		return
	}

	switch r.Method {
	case http.MethodGet:
		posts, err := a.Scheduler.List(r.Context(), user.OpenID)
		if err != nil {
			a.Logger.Printf("failed to list posts: %v", err)
			http.Error(w, "Failed to list posts", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})

	case http.MethodPost:
		var req struct {
			Content       string    `json:"content"`
			MediaURL      string    `json:"media_url"`
			ScheduledTime time.Time `json:"scheduled_time"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		post := &scheduler.Post{
			OpenID:      user.OpenID,
			Content:     req.Content,
			MediaURL:    req.MediaURL,
			ScheduledAt: req.ScheduledTime,
		}
		if err := a.Scheduler.Schedule(r.Context(), post); err != nil {
			if errors.Is(err, scheduler.ErrInvalidPost) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			a.Logger.Printf("failed to schedule post: %v", err)
			http.Error(w, "Failed to schedule post", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, post)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

//
// Operational handlers
//

// handleHealthz probes the backend and reports the resolved base URL.
func (a *Application) handleHealthz(w http.ResponseWriter, r *http.Request) {
	healthy := a.Locator.ProbeHealth(r.Context(), a.Config.Backend.ProbeTimeout.Duration)
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{
		"healthy": healthy,
		"backend": a.Locator.Resolve(r.Context()),
	})
}

// handleBackendOverride reads or updates the persisted backend override.
// An empty url clears the override.
func (a *Application) handleBackendOverride(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{
			"backend": a.Locator.Resolve(r.Context()),
		})
	case http.MethodPost:
		var req struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := a.Locator.PersistOverride(r.Context(), req.URL); err != nil {
			a.Logger.Printf("failed to persist backend override: %v", err)
			http.Error(w, "Failed to persist override", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"backend": a.Locator.Resolve(r.Context()),
		})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// timestamp builds the cache-busting query value appended after a reset.
func timestamp() string {
	return time.Now().UTC().Format("20060102150405")
}
