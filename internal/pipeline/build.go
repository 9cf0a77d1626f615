package pipeline

import (
	"errors"
	"fmt"
	"io"

	"github.com/ppiankov/credence/internal/cache"
	"github.com/ppiankov/credence/internal/crossref"
	"github.com/ppiankov/credence/internal/extract"
	"github.com/ppiankov/credence/internal/factcheck"
	"github.com/ppiankov/credence/internal/llm"
	"github.com/ppiankov/credence/internal/logging"
	"github.com/ppiankov/credence/internal/match"
	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/score"
	"github.com/ppiankov/credence/internal/source"
	"github.com/ppiankov/credence/internal/worker"
	"github.com/sirupsen/logrus"
)

// BuildOptions are per-run overrides that do not belong in the config file
type BuildOptions struct {
	NoCache bool
	Logger  logrus.FieldLogger
}

// FromConfig wires a pipeline from configuration. The returned closer
// releases the cache backend and must be called when the pipeline is done.
// A missing fact-check key or LLM provider degrades the pipeline rather
// than failing it.
func FromConfig(cfg *model.Config, opts BuildOptions) (*Pipeline, io.Closer, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	var closer io.Closer = nopCloser{}
	adapterOpts := []crossref.Option{
		crossref.WithLogger(log),
		crossref.WithRelevanceFloor(cfg.FactCheck.RelevanceFloor),
		crossref.WithStanceClassifier(match.NewStanceClassifier(cfg.Stance)),
		crossref.WithPublisherFilter(cfg.FactCheck.PublisherFilter),
	}

	if cfg.Cache.Enabled && !opts.NoCache {
		store, err := cache.New(cfg.Cache)
		if err != nil {
			return nil, nil, fmt.Errorf("open cache: %w", err)
		}
		if c, ok := store.(io.Closer); ok {
			closer = c
		}
		results := cache.NewResultCache(store, cfg.Cache.TTL, cache.WithLogger(log))
		adapterOpts = append(adapterOpts, crossref.WithCache(results))
	}

	limiter := worker.NewLimiter(0)
	searcher, err := factcheck.Configured(cfg.FactCheck, cfg.HTTP, limiter, log)
	if err != nil && !errors.Is(err, factcheck.ErrNoCredentials) {
		_ = closer.Close()
		return nil, nil, fmt.Errorf("configure fact-check sources: %w", err)
	}

	heuristic := extract.NewHeuristicExtractor(cfg.Extraction)
	pipelineOpts := []Option{
		WithFallback(heuristic),
		WithExtractor(heuristic),
		WithTopK(cfg.FactCheck.TopK),
		WithClaimWorkers(cfg.Concurrency.ClaimWorkers),
		WithLogger(log),
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
	if err != nil {
		log.WithError(err).Warn("LLM provider unavailable; using heuristic claim extraction")
	} else if provider != nil {
		pipelineOpts = append(pipelineOpts, WithExtractor(extract.NewLLMExtractor(provider, cfg.LLM.Model, cfg.Extraction)))
	}

	p := New(
		source.NewRegistry(cfg.Sources),
		crossref.New(searcher, adapterOpts...),
		score.NewFuser(cfg.Fusion),
		pipelineOpts...,
	)
	return p, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
