package worker

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a minimum delay between calls to the same host. One
// limiter is shared by every claim of a run so the spacing holds across
// concurrent lookups.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultDelay time.Duration
}

// NewLimiter creates a limiter applying defaultDelay to hosts without an
// explicit delay. A zero delay never blocks.
func NewLimiter(defaultDelay time.Duration) *Limiter {
	if defaultDelay < 0 {
		defaultDelay = 0
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultDelay: defaultDelay,
	}
}

// Wait blocks until a call to the host of rawURL is allowed
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := extractHost(rawURL)
	if err != nil {
		return err
	}

	return l.getLimiter(host).Wait(ctx)
}

// Allow reports whether a call to the host of rawURL may proceed now,
// consuming the slot if so
func (l *Limiter) Allow(rawURL string) bool {
	host, err := extractHost(rawURL)
	if err != nil {
		return false
	}

	return l.getLimiter(host).Allow()
}

// SetHostDelay sets the minimum spacing for one host
func (l *Limiter) SetHostDelay(host string, delay time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.limiters[host] = newDelayLimiter(delay)
}

// getLimiter returns the rate limiter for a host
func (l *Limiter) getLimiter(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[host]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[host]; exists {
		return limiter
	}

	limiter = newDelayLimiter(l.defaultDelay)
	l.limiters[host] = limiter

	return limiter
}

// newDelayLimiter allows one call per delay with no bursting
func newDelayLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// extractHost extracts the host from a URL
func extractHost(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("no host in %q", rawURL)
	}
	return parsed.Host, nil
}

// HostOf returns the host of rawURL, or "" when it has none
func HostOf(rawURL string) string {
	host, err := extractHost(rawURL)
	if err != nil {
		return ""
	}
	return host
}
