package source

import (
	"sync"
	"testing"

	"github.com/ppiankov/credence/internal/model"
)

func testConfig() model.SourcesConfig {
	return model.SourcesConfig{
		DefaultPrior: 0.5,
		UnknownPrior: 0.6,
		Priors: []model.DomainPrior{
			{Domain: "bbc.co.uk", Prior: 0.85},
			{Domain: "Reuters.com", Prior: 0.9},
			{Domain: "blogs.example.com", Prior: 0.3},
		},
	}
}

func TestRegistry_KnownDomains(t *testing.T) {
	registry := NewRegistry(testConfig())

	tests := []struct {
		url    string
		domain string
		prior  float64
		desc   string
	}{
		{"https://www.bbc.co.uk/news/world-1", "bbc.co.uk", 0.85, "Subdomain of configured domain"},
		{"https://news.bbc.co.uk/x", "bbc.co.uk", 0.85, "Multi-label public suffix"},
		{"https://www.reuters.com/article", "reuters.com", 0.9, "Configured domain is case-insensitive"},
		{"https://blogs.example.com/post", "example.com", 0.3, "Configured subdomain wins over parent"},
		{"https://www.reuters.com:443/x", "reuters.com", 0.9, "Port is ignored"},
		{"reuters.com/world", "reuters.com", 0.9, "Scheme-less URL"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			domain, prior := registry.Prior(tt.url)
			if domain != tt.domain {
				t.Errorf("expected domain %s for %s, got %s", tt.domain, tt.url, domain)
			}
			if prior != tt.prior {
				t.Errorf("expected prior %v for %s, got %v", tt.prior, tt.url, prior)
			}
		})
	}
}

func TestRegistry_NoURL(t *testing.T) {
	registry := NewRegistry(testConfig())

	for _, raw := range []string{"", "   ", "https://"} {
		domain, prior := registry.Prior(raw)
		if domain != "" || prior != 0.5 {
			t.Errorf("expected (\"\", 0.5) for %q, got (%q, %v)", raw, domain, prior)
		}
	}
}

func TestRegistry_SeedsUnknownDomains(t *testing.T) {
	registry := NewRegistry(testConfig())
	before := registry.Len()

	domain, prior := registry.Prior("https://www.unknown-news.example.org/a")
	if domain != "example.org" || prior != 0.6 {
		t.Errorf("expected (example.org, 0.6), got (%s, %v)", domain, prior)
	}
	if registry.Len() != before+1 {
		t.Errorf("expected unknown domain to be remembered")
	}

	// A later configured value replaces the seed
	registry.Set("example.org", 0.2)
	if _, prior := registry.Prior("https://example.org/b"); prior != 0.2 {
		t.Errorf("expected 0.2 after Set, got %v", prior)
	}
}

func TestRegistry_ZeroConfigUsesDefaults(t *testing.T) {
	registry := NewRegistry(model.SourcesConfig{})

	if _, prior := registry.Prior(""); prior != DefaultPrior {
		t.Errorf("expected %v, got %v", DefaultPrior, prior)
	}
	if _, prior := registry.Prior("https://new.example"); prior != UnknownPrior {
		t.Errorf("expected %v, got %v", UnknownPrior, prior)
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	registry := NewRegistry(testConfig())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			registry.Prior("https://concurrent.example.net/x")
		}()
	}
	wg.Wait()

	if _, prior := registry.Prior("https://example.net"); prior != 0.6 {
		t.Errorf("expected seeded prior 0.6, got %v", prior)
	}
}

func TestRegisteredDomain(t *testing.T) {
	tests := map[string]string{
		"news.bbc.co.uk":   "bbc.co.uk",
		"www.nytimes.com":  "nytimes.com",
		"NYTimes.com.":     "nytimes.com",
		"co.uk":            "co.uk",
		"127.0.0.1":        "127.0.0.1",
		"foo.blogspot.com": "foo.blogspot.com",
	}
	for host, want := range tests {
		if got := RegisteredDomain(host); got != want {
			t.Errorf("RegisteredDomain(%q) = %q, want %q", host, got, want)
		}
	}
}
