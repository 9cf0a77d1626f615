// Package crossref matches claims against published fact-checks and turns
// the matches into ranked evidence.
package crossref

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/ppiankov/credence/internal/cache"
	"github.com/ppiankov/credence/internal/factcheck"
	"github.com/ppiankov/credence/internal/logging"
	"github.com/ppiankov/credence/internal/match"
	"github.com/ppiankov/credence/internal/model"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultTopK is the evidence count used when a caller passes a non-positive topK
	DefaultTopK = 5

	// DefaultRelevanceFloor is the similarity below which a fact-check is ignored
	DefaultRelevanceFloor = 0.15
)

// Kind classifies the outcome of one cross-reference
type Kind int

const (
	// Found means at least one relevant fact-check matched
	Found Kind = iota
	// Empty means the lookup worked but nothing relevant matched
	Empty
	// Unavailable means the source could not be consulted
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case Found:
		return "found"
	case Empty:
		return "empty"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Outcome is the result of cross-referencing one claim. Evidence is never
// nil and is empty unless Kind is Found; Err is set only when Unavailable.
type Outcome struct {
	Kind     Kind
	Evidence []model.Evidence
	Err      error
}

// Adapter cross-references claims. Searches go through the searcher it is
// given, which is expected to carry its own rate limiting (see
// factcheck.Throttle). Safe for concurrent use.
type Adapter struct {
	searcher   factcheck.Searcher
	cache      *cache.ResultCache
	classifier match.StanceClassifier
	floor      float64
	filter     string
	log        logrus.FieldLogger

	missingOnce sync.Once
}

// Option configures an Adapter
type Option func(*Adapter)

// WithCache stores raw search results so repeated claims skip the network
func WithCache(c *cache.ResultCache) Option {
	return func(a *Adapter) { a.cache = c }
}

// WithStanceClassifier overrides the default 0.7 / 0.3 thresholds
func WithStanceClassifier(c match.StanceClassifier) Option {
	return func(a *Adapter) { a.classifier = c }
}

// WithRelevanceFloor overrides the minimum similarity for a match
func WithRelevanceFloor(floor float64) Option {
	return func(a *Adapter) { a.floor = floor }
}

// WithPublisherFilter scopes cache entries to a publisher filter
func WithPublisherFilter(filter string) Option {
	return func(a *Adapter) { a.filter = filter }
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(a *Adapter) { a.log = log }
}

// New creates an adapter. A nil searcher means no source is configured:
// every lookup is Unavailable.
func New(searcher factcheck.Searcher, opts ...Option) *Adapter {
	a := &Adapter{
		searcher:   searcher,
		classifier: match.DefaultStanceClassifier(),
		floor:      DefaultRelevanceFloor,
		log:        logging.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CrossReference returns at most topK evidence items for claim, sorted by
// similarity descending
func (a *Adapter) CrossReference(ctx context.Context, claim string, topK int) Outcome {
	if topK <= 0 {
		topK = DefaultTopK
	}
	log := a.log.WithField("claim", abbreviate(claim))

	results, err := a.lookup(ctx, claim, log)
	if err != nil {
		return Outcome{Kind: Unavailable, Evidence: []model.Evidence{}, Err: err}
	}

	evidence := a.rank(claim, results)
	if len(evidence) > topK {
		evidence = evidence[:topK]
	}

	if len(evidence) == 0 {
		log.Debug("No relevant fact-checks found")
		return Outcome{Kind: Empty, Evidence: evidence}
	}

	log.WithField("matches", len(evidence)).Info("Cross-referenced claim")
	return Outcome{Kind: Found, Evidence: evidence}
}

// Evidence is CrossReference with Unavailable treated as Empty
func (a *Adapter) Evidence(ctx context.Context, claim string, topK int) []model.Evidence {
	return a.CrossReference(ctx, claim, topK).Evidence
}

// lookup returns the raw result set from the cache or the searcher. Only
// complete successful searches are cached, including empty ones.
func (a *Adapter) lookup(ctx context.Context, claim string, log logrus.FieldLogger) ([]model.FactCheck, error) {
	if a.cache != nil {
		if results, found := a.cache.Get(claim, a.filter); found {
			return results, nil
		}
	}

	if a.searcher == nil {
		a.warnMissing()
		return nil, factcheck.ErrNoCredentials
	}

	results, err := a.searcher.Search(ctx, claim)
	var partial *factcheck.PartialError
	if errors.As(err, &partial) {
		// Incomplete sets are used for this call only
		log.WithError(err).WithField("source", a.searcher.Name()).Warn("Fact-check lookup partially failed")
		return results, nil
	}
	if err != nil {
		if errors.Is(err, factcheck.ErrNoCredentials) {
			a.warnMissing()
		} else {
			log.WithError(err).WithField("source", a.searcher.Name()).Warn("Fact-check lookup failed")
		}
		return nil, err
	}

	if a.cache != nil {
		a.cache.Set(claim, a.filter, results)
	}
	return results, nil
}

// rank scores every candidate, drops those under the relevance floor and
// sorts the rest by similarity. Ties keep search order.
func (a *Adapter) rank(claim string, results []model.FactCheck) []model.Evidence {
	evidence := make([]model.Evidence, 0, len(results))

	for _, fc := range results {
		similarity := match.Similarity(claim, fc.Statement)
		if similarity < a.floor {
			continue
		}

		score := match.NormalizeRating(fc.Rating)
		evidence = append(evidence, model.Evidence{
			Type:            model.EvidenceTypeFactCheck,
			SourceName:      fc.Publisher,
			SourceURL:       fc.SourceURL,
			Stance:          a.classifier.Classify(score),
			Similarity:      similarity,
			Snippet:         fc.Snippet,
			TruthMeter:      fc.Rating,
			TruthMeterScore: score,
		})
	}

	sort.SliceStable(evidence, func(i, j int) bool {
		return evidence[i].Similarity > evidence[j].Similarity
	})

	return evidence
}

func (a *Adapter) warnMissing() {
	a.missingOnce.Do(func() {
		a.log.Warn("No fact-check source configured; cross-referencing disabled")
	})
}

// Aggregate is the mean similarity over every evidence item of every claim,
// or 0 when no claim has evidence. A claim with many weak matches therefore
// outweighs one with a single strong match.
func Aggregate(claims []model.Claim) float64 {
	var sum float64
	var n int
	for _, c := range claims {
		for _, ev := range c.Evidence {
			sum += ev.Similarity
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func abbreviate(s string) string {
	r := []rune(s)
	if len(r) > 50 {
		return string(r[:50]) + "..."
	}
	return s
}
