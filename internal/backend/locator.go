// Package backend resolves which base URL the service talks to and verifies
// that the chosen backend is actually reachable.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"tiktok-signin-go/internal/storage"
)

// OverrideKey is the durable key holding a manually or probe-selected backend URL.
const OverrideKey = "render_backend_url"

// Doer abstracts the HTTP client so probes can be tested without a network.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Locator picks the backend base URL: a persisted override wins, otherwise the
// environment default applies. It also proposes structurally derived
// alternates and runs the health probe.
type Locator struct {
	durable    storage.KV
	devURL     string
	prodURL    string
	knownHosts []string // exactly the two hardcoded production hosts
	isProd     bool
	client     Doer
	logger     *log.Logger
}

// NewLocator creates a Locator backed by the given durable store.
func NewLocator(durable storage.KV, devURL, prodURL string, knownHosts []string, isProd bool, client Doer, logger *log.Logger) *Locator {
	if client == nil {
		client = http.DefaultClient
	}
	return &Locator{
		durable:    durable,
		devURL:     devURL,
		prodURL:    prodURL,
		knownHosts: knownHosts,
		isProd:     isProd,
		client:     client,
		logger:     logger,
	}
}

// Resolve returns the currently configured base URL. A persisted override
// takes precedence over the environment default.
func (l *Locator) Resolve(ctx context.Context) string {
	saved, err := l.durable.Get(ctx, OverrideKey)
	if err == nil && saved != "" {
		return saved
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		l.logger.Printf("backend: failed to read override, using default: %v", err)
	}
	if l.isProd {
		return l.prodURL
	}
	return l.devURL
}

// Alternates returns base plus one structurally derived sibling obtained by
// toggling an "api." hostname prefix. The two known production hosts are each
// other's alternate regardless of derivation.
func (l *Locator) Alternates(base string) []string {
	if len(l.knownHosts) == 2 {
		if base == l.knownHosts[0] {
			return []string{l.knownHosts[0], l.knownHosts[1]}
		}
		if base == l.knownHosts[1] {
			return []string{l.knownHosts[1], l.knownHosts[0]}
		}
	}

	if !strings.Contains(base, "://") {
		return []string{base}
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Hostname() == "" {
		return []string{base}
	}

	host := parsed.Hostname()
	var altHost string
	if strings.HasPrefix(host, "api.") {
		altHost = strings.TrimPrefix(host, "api.")
	} else {
		altHost = "api." + host
	}
	alt := strings.Replace(base, host, altHost, 1)
	return []string{base, alt}
}

// PersistOverride stores url as the backend override, or clears the override
// when url is empty. A single trailing slash is stripped for consistency.
func (l *Locator) PersistOverride(ctx context.Context, rawURL string) error {
	if rawURL == "" {
		if err := l.durable.Delete(ctx, OverrideKey); err != nil {
			return fmt.Errorf("failed to clear backend override: %w", err)
		}
		return nil
	}
	formatted := strings.TrimSuffix(rawURL, "/")
	if err := l.durable.Set(ctx, OverrideKey, formatted); err != nil {
		return fmt.Errorf("failed to persist backend override: %w", err)
	}
	return nil
}
