// Package factcheck queries external fact-checking services for published
// verdicts on a claim.
package factcheck

import (
	"context"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/ppiankov/credence/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxResponseBytes bounds how much of a response body is read
const maxResponseBytes = 4 << 20

// ErrNoCredentials is returned by a searcher that needs an API key it was not given
var ErrNoCredentials = errors.New("no credentials configured")

// Searcher looks up published fact-checks for a claim
type Searcher interface {
	Name() string
	Search(ctx context.Context, claim string) ([]model.FactCheck, error)
}

// StatusError is returned when a service answers with a non-2xx status
type StatusError struct {
	Source     string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Source, e.StatusCode, e.Body)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
