package factcheck

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/ppiankov/credence/internal/logging"
	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/worker"
	"github.com/sirupsen/logrus"
)

// Endpointer is implemented by searchers that call a single HTTP endpoint
type Endpointer interface {
	Endpoint() string
}

// Throttled delays each search until the limiter allows a call to the
// searcher's host
type Throttled struct {
	Searcher
	limiter  *worker.Limiter
	endpoint string
}

// Throttle wraps s so calls are spaced per host by limiter. Searchers without
// an endpoint are returned unchanged.
func Throttle(s Searcher, limiter *worker.Limiter) Searcher {
	ep, ok := s.(Endpointer)
	if !ok || limiter == nil {
		return s
	}
	return &Throttled{Searcher: s, limiter: limiter, endpoint: ep.Endpoint()}
}

// Search waits for the limiter then delegates
func (t *Throttled) Search(ctx context.Context, claim string) ([]model.FactCheck, error) {
	if err := t.limiter.Wait(ctx, t.endpoint); err != nil {
		return nil, fmt.Errorf("%s rate limit: %w", t.Name(), err)
	}
	return t.Searcher.Search(ctx, claim)
}

// Multi queries several searchers in order and concatenates their results
type Multi struct {
	searchers []Searcher
	log       logrus.FieldLogger
}

// NewMulti combines searchers. A nil logger discards output.
func NewMulti(log logrus.FieldLogger, searchers ...Searcher) *Multi {
	if log == nil {
		log = logging.Discard()
	}
	return &Multi{searchers: searchers, log: log}
}

// Name lists the combined searchers
func (m *Multi) Name() string {
	names := make([]string, len(m.searchers))
	for i, s := range m.searchers {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}

// PartialError accompanies results that are usable but incomplete because
// some searchers failed
type PartialError struct {
	Err error
}

func (e *PartialError) Error() string {
	return "partial fact-check results: " + e.Err.Error()
}

func (e *PartialError) Unwrap() error {
	return e.Err
}

// Search returns the concatenated results. When every searcher failed the
// results are nil; when only some failed the results of the others are
// returned together with a *PartialError.
func (m *Multi) Search(ctx context.Context, claim string) ([]model.FactCheck, error) {
	if len(m.searchers) == 0 {
		return nil, ErrNoCredentials
	}

	var (
		results  []model.FactCheck
		failures *multierror.Error
	)

	for _, s := range m.searchers {
		found, err := s.Search(ctx, claim)
		if err != nil {
			m.log.WithError(err).WithField("source", s.Name()).Warn("Fact-check search failed")
			failures = multierror.Append(failures, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		results = append(results, found...)
	}

	if failures != nil && len(failures.Errors) == len(m.searchers) {
		return nil, failures.ErrorOrNil()
	}

	if results == nil {
		results = []model.FactCheck{}
	}
	if failures != nil {
		return results, &PartialError{Err: failures.ErrorOrNil()}
	}
	return results, nil
}

// Configured builds the searchers named in cfg.Sources, each throttled by
// its configured delay on limiter. A Google source without a key is left
// out; ErrNoCredentials is returned when nothing usable remains.
func Configured(cfg model.FactCheckConfig, httpCfg model.HTTPConfig, limiter *worker.Limiter, log logrus.FieldLogger) (Searcher, error) {
	if log == nil {
		log = logging.Discard()
	}

	var searchers []Searcher
	for _, name := range cfg.Sources {
		switch strings.ToLower(name) {
		case "google":
			if cfg.GoogleAPIKey == "" {
				log.WithField("source", "google").Warn("No Google Fact Check API key provided; source disabled")
				continue
			}
			client := NewGoogleClient(cfg, httpCfg)
			if limiter != nil {
				limiter.SetHostDelay(worker.HostOf(client.Endpoint()), cfg.GoogleDelay)
			}
			searchers = append(searchers, Throttle(client, limiter))
		case "politifact":
			client := NewPolitiFactClient(cfg, httpCfg)
			if limiter != nil {
				limiter.SetHostDelay(worker.HostOf(client.Endpoint()), cfg.PolitiFactDelay)
			}
			searchers = append(searchers, Throttle(client, limiter))
		default:
			return nil, fmt.Errorf("unknown fact-check source: %s", name)
		}
	}

	switch len(searchers) {
	case 0:
		return nil, ErrNoCredentials
	case 1:
		return searchers[0], nil
	default:
		return NewMulti(log, searchers...), nil
	}
}
