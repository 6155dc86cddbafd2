package backend

import (
	"context"
	"net/http"
	"strings"
	"time"

	"tiktok-signin-go/internal/metrics"
)

// healthPaths is the ordered list of well-known health-check paths tried
// against each candidate base. Root is the last resort.
var healthPaths = []string{
	"/api/health/",
	"/api/healthcheck/",
	"/health/",
	"/healthcheck/",
	"/api/tiktok/health/",
	"/api/tiktok/callback/health/",
	"/api/status/",
	"/",
}

// ProbeHealth reports whether any backend candidate answers a health check.
//
// Candidates are the cross-product of {resolved base, its alternates} and
// {as-given, forced-https, forced-http}, duplicates removed, each tried
// against healthPaths in order with a bounded-timeout request. The first
// success short-circuits the whole probe; if the winning base differs from the
// originally resolved one it is persisted as the new override. Per-candidate
// errors are expected and non-fatal; only total exhaustion returns false.
func (l *Locator) ProbeHealth(ctx context.Context, timeout time.Duration) bool {
	base := l.Resolve(ctx)
	candidates := l.probeCandidates(ctx)
	l.logger.Printf("backend: probing %d candidate base URLs", len(candidates))

	for _, candidate := range candidates {
		for _, path := range healthPaths {
			endpoint := candidate + path
			outcome := l.tryEndpoint(ctx, endpoint, timeout)
			if outcome == probeFailed {
				continue
			}
			metrics.HealthProbes.WithLabelValues("success").Inc()
			l.logger.Printf("backend: health check succeeded at %s", endpoint)
			// An opaque success proves reachability but not that the candidate
			// answers health checks, so it never becomes the saved backend.
			if outcome == probeHealthy && candidate != base {
				l.logger.Printf("backend: updating saved backend URL from %s to %s", base, candidate)
				if err := l.PersistOverride(ctx, candidate); err != nil {
					l.logger.Printf("backend: failed to persist working URL: %v", err)
				}
			}
			return true
		}
	}

	metrics.HealthProbes.WithLabelValues("failure").Inc()
	l.logger.Printf("backend: all health checks failed for all candidates")
	return false
}

// probeCandidates builds the ordered, de-duplicated candidate list.
func (l *Locator) probeCandidates(ctx context.Context) []string {
	bases := l.Alternates(l.Resolve(ctx))

	var candidates []string
	seen := make(map[string]bool)
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			candidates = append(candidates, u)
		}
	}
	for _, b := range bases {
		add(b)
		add(strings.Replace(b, "http://", "https://", 1))
		add(strings.Replace(b, "https://", "http://", 1))
	}
	return candidates
}

// probeOutcome is the result of one endpoint attempt. Opaque successes prove
// reachability only.
type probeOutcome int

const (
	probeFailed probeOutcome = iota
	probeHealthy
	probeOpaque
)

// tryEndpoint performs one bounded health-check request. A GET that answers
// with a non-error status is a healthy success. When the server rejects the
// probe shape itself (forbidden or method-not-allowed), one opaque HEAD
// attempt is made and counts as an opaque success if the transport does not
// fail.
func (l *Locator) tryEndpoint(ctx context.Context, endpoint string, timeout time.Duration) probeOutcome {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return probeFailed
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := l.client.Do(req)
	if err != nil {
		return probeFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode < 400 {
		return probeHealthy
	}
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusMethodNotAllowed {
		if l.tryOpaque(ctx, endpoint, timeout) {
			return probeOpaque
		}
	}
	return probeFailed
}

// tryOpaque is the status-blind fallback: any completed HEAD counts.
func (l *Locator) tryOpaque(ctx context.Context, endpoint string, timeout time.Duration) bool {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodHead, endpoint, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := l.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
