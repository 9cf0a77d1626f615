// Package source assigns prior truth probabilities to publishing domains.
package source

import (
	"net"
	"net/url"
	"strings"
	"sync"

	"github.com/ppiankov/credence/internal/model"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultPrior is used when no domain can be determined
	DefaultPrior = 0.5
	// UnknownPrior seeds domains seen for the first time
	UnknownPrior = 0.6
)

// Registry maps domains to priors. Domains not configured are seeded with
// the unknown prior on first sight and remembered for the registry's life.
// Safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	priors       map[string]float64
	defaultPrior float64
	unknownPrior float64
}

// NewRegistry builds a registry from configuration
func NewRegistry(cfg model.SourcesConfig) *Registry {
	r := &Registry{
		priors:       make(map[string]float64),
		defaultPrior: cfg.DefaultPrior,
		unknownPrior: cfg.UnknownPrior,
	}
	if r.defaultPrior <= 0 {
		r.defaultPrior = DefaultPrior
	}
	if r.unknownPrior <= 0 {
		r.unknownPrior = UnknownPrior
	}

	for _, dp := range cfg.Priors {
		domain := normalizeDomain(dp.Domain)
		if domain != "" {
			r.priors[domain] = dp.Prior
		}
	}

	return r
}

// Prior returns the registered domain of rawURL and its prior. Without a
// usable host the domain is empty and the default prior is returned.
func (r *Registry) Prior(rawURL string) (string, float64) {
	host := hostOf(rawURL)
	if host == "" {
		return "", r.defaultPrior
	}

	domain := RegisteredDomain(host)

	r.mu.RLock()
	// Exact host first so a configured subdomain can differ from its parent
	if prior, ok := r.priors[host]; ok {
		r.mu.RUnlock()
		return domain, prior
	}
	if prior, ok := r.priors[domain]; ok {
		r.mu.RUnlock()
		return domain, prior
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if prior, ok := r.priors[domain]; ok {
		return domain, prior
	}
	r.priors[domain] = r.unknownPrior
	return domain, r.unknownPrior
}

// Set records a prior for a domain
func (r *Registry) Set(domain string, prior float64) {
	domain = normalizeDomain(domain)
	if domain == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.priors[domain] = prior
}

// Len returns the number of known domains, seeded ones included
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.priors)
}

// RegisteredDomain returns the domain one label below the public suffix
// (news.bbc.co.uk becomes bbc.co.uk). Hosts that are themselves a public
// suffix, or IP addresses, are returned unchanged.
func RegisteredDomain(host string) string {
	host = normalizeDomain(host)
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

func hostOf(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return normalizeDomain(parsed.Hostname())
}

func normalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	return strings.TrimSuffix(domain, ".")
}
