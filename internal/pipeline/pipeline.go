// Package pipeline runs one analysis: source prior, claim extraction,
// cross-referencing and confidence fusion.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/credence/internal/crossref"
	"github.com/ppiankov/credence/internal/extract"
	"github.com/ppiankov/credence/internal/logging"
	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/score"
	"github.com/ppiankov/credence/internal/source"
	"github.com/ppiankov/credence/internal/worker"
	"github.com/sirupsen/logrus"
)

// ErrEmptyText is returned when there is nothing to analyze
var ErrEmptyText = errors.New("text is empty")

// Pipeline orchestrates the complete analysis. Safe for concurrent use
// when its collaborators are.
type Pipeline struct {
	registry  *source.Registry
	extractor extract.Extractor
	fallback  extract.Extractor
	adapter   *crossref.Adapter
	fuser     *score.Fuser
	topK      int
	workers   int
	log       logrus.FieldLogger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithExtractor sets the primary claim extractor. The heuristic extractor
// stays as the fallback when the primary fails.
func WithExtractor(e extract.Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

// WithFallback replaces the fallback extractor
func WithFallback(e extract.Extractor) Option {
	return func(p *Pipeline) { p.fallback = e }
}

// WithTopK sets the evidence kept per claim
func WithTopK(k int) Option {
	return func(p *Pipeline) { p.topK = k }
}

// WithClaimWorkers sets how many claims are cross-referenced at once
func WithClaimWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Pipeline) { p.log = log }
}

// New creates a pipeline. Without WithExtractor the heuristic extractor is used.
func New(registry *source.Registry, adapter *crossref.Adapter, fuser *score.Fuser, opts ...Option) *Pipeline {
	heuristic := extract.NewHeuristicExtractor(model.ExtractionConfig{})
	p := &Pipeline{
		registry:  registry,
		extractor: heuristic,
		fallback:  heuristic,
		adapter:   adapter,
		fuser:     fuser,
		topK:      crossref.DefaultTopK,
		workers:   1,
		log:       logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Analyze produces a report for one input. Only an empty text or a
// cancelled context is an error; unavailable sources and failed
// extraction degrade the report and are listed in its warnings.
func (p *Pipeline) Analyze(ctx context.Context, in model.Input) (*model.Report, error) {
	text := in.Text
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	log := p.log
	if in.ID != "" {
		log = log.WithField("input", in.ID)
	}

	report := model.NewReport(in.URL)
	report.Subject = model.SubjectFrom(in.URL, text)

	if extract.LooksLikeHTML(text) {
		visible, err := extract.VisibleText(text)
		if err != nil {
			log.WithError(err).Warn("Could not parse HTML input; analyzing raw text")
		} else {
			text = visible
			report.Subject = model.SubjectFrom(in.URL, text)
		}
	}

	// 1. Source prior
	report.Domain, report.SourcePrior = p.registry.Prior(in.URL)

	// 2. Claims and text consistency
	extraction, extractor, err := p.extract(ctx, text, report, log)
	if err != nil {
		return nil, fmt.Errorf("extract claims: %w", err)
	}
	report.Extractor = extractor
	report.TextConsistency = extraction.TextConsistency
	report.Claims = extraction.Claims

	// 3. Cross-reference every claim
	outcomes := worker.Map(ctx, p.workers, len(report.Claims), func(ctx context.Context, i int) crossref.Outcome {
		return p.adapter.CrossReference(ctx, report.Claims[i].Text, p.topK)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var unavailable int
	var firstErr error
	for i, out := range outcomes {
		report.Claims[i].Evidence = out.Evidence
		if out.Kind == crossref.Unavailable {
			unavailable++
			if firstErr == nil {
				firstErr = out.Err
			}
		}
	}
	if unavailable > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d of %d claims could not be cross-referenced: %v", unavailable, len(outcomes), firstErr))
	}

	// 4. Aggregate and fuse
	report.CrossReference = crossref.Aggregate(report.Claims)
	report.Fusion = p.fuser.Fuse(model.FusionInputs{
		SourcePrior:     report.SourcePrior,
		TextConsistency: report.TextConsistency,
		CrossReference:  report.CrossReference,
	})

	log.WithFields(logrus.Fields{
		"claims":     len(report.Claims),
		"evidence":   report.EvidenceCount(),
		"confidence": report.Fusion.Confidence,
		"verdict":    report.Fusion.Verdict,
	}).Info("Analysis complete")

	return report, nil
}

// extract runs the primary extractor and falls back to the heuristic one
// when it fails for any reason other than cancellation
func (p *Pipeline) extract(ctx context.Context, text string, report *model.Report, log logrus.FieldLogger) (*extract.Extraction, string, error) {
	extraction, err := p.extractor.Extract(ctx, text)
	if err == nil {
		return extraction, p.extractor.Name(), nil
	}
	if ctx.Err() != nil || p.fallback == nil || p.fallback == p.extractor {
		return nil, "", err
	}

	log.WithError(err).WithField("extractor", p.extractor.Name()).Warn("Claim extraction failed; using heuristic extractor")
	report.Warnings = append(report.Warnings, fmt.Sprintf("%s extraction failed, used %s: %v", p.extractor.Name(), p.fallback.Name(), err))

	extraction, err = p.fallback.Extract(ctx, text)
	if err != nil {
		return nil, "", err
	}
	return extraction, p.fallback.Name(), nil
}
