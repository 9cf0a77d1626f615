package util

import (
	"net/http"
	"net/url"
	"time"

	"github.com/ppiankov/credence/internal/model"
	"golang.org/x/net/http/httpproxy"
)

// NewHTTPClient builds an outbound client honoring the configured proxies
func NewHTTPClient(timeout time.Duration, cfg model.HTTPConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = NewProxyFunc(cfg)

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// NewProxyFunc creates a proxy function based on configuration.
// If no proxy URLs are provided, falls back to environment variables.
// An HTTPS request uses the HTTP proxy when no HTTPS proxy is set.
func NewProxyFunc(cfg model.HTTPConfig) func(*http.Request) (*url.URL, error) {
	if cfg.HTTPProxy == "" && cfg.HTTPSProxy == "" {
		return http.ProxyFromEnvironment
	}

	httpsProxy := cfg.HTTPSProxy
	if httpsProxy == "" {
		httpsProxy = cfg.HTTPProxy
	}
	proxy := (&httpproxy.Config{
		HTTPProxy:  cfg.HTTPProxy,
		HTTPSProxy: httpsProxy,
		NoProxy:    cfg.NoProxy,
	}).ProxyFunc()

	return func(req *http.Request) (*url.URL, error) {
		return proxy(req.URL)
	}
}
