package crossref

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/credence/internal/cache"
	"github.com/ppiankov/credence/internal/factcheck"
	"github.com/ppiankov/credence/internal/match"
	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vaccineClaim = "Vaccine X reduces hospitalization by 90%"

type fakeSearcher struct {
	mu      sync.Mutex
	results []model.FactCheck
	err     error
	calls   int
	stamps  []time.Time
}

func (f *fakeSearcher) Name() string     { return "fake" }
func (f *fakeSearcher) Endpoint() string { return "https://factcheck.test/search" }

func (f *fakeSearcher) Search(ctx context.Context, claim string) ([]model.FactCheck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.stamps = append(f.stamps, time.Now())
	return f.results, f.err
}

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func corpus() []model.FactCheck {
	return []model.FactCheck{
		{Statement: "Vaccine Y is unsafe for children", Rating: "false", Publisher: "Snopes"},
		{Statement: "Vaccine X cuts hospitalization risk by 90 percent", Rating: "mostly-true", Publisher: "PolitiFact", SourceURL: "https://www.politifact.com/x"},
		{Statement: "Vaccine X reduces hospitalization", Rating: "Pants on Fire", Publisher: "FactCheck.org"},
		{Statement: "Vaccine X reduces hospitalization by 90%", Rating: "Half True", Publisher: "AFP"},
	}
}

func newCache(t *testing.T) *cache.ResultCache {
	t.Helper()
	return cache.NewResultCache(cache.NewMemoryCache(0, 0), time.Hour)
}

func TestCrossReference_VaccineMatch(t *testing.T) {
	searcher := &fakeSearcher{results: []model.FactCheck{
		{Statement: "Vaccine X cuts hospitalization risk by 90 percent", Rating: "mostly-true", Publisher: "PolitiFact", SourceURL: "https://www.politifact.com/x", Snippet: "snip"},
	}}
	adapter := New(searcher)

	out := adapter.CrossReference(context.Background(), vaccineClaim, 5)
	require.Equal(t, Found, out.Kind)
	require.Len(t, out.Evidence, 1)

	ev := out.Evidence[0]
	assert.Greater(t, ev.Similarity, 0.3)
	assert.Equal(t, model.StanceSupports, ev.Stance)
	assert.Equal(t, 0.75, ev.TruthMeterScore)
	assert.Equal(t, "mostly-true", ev.TruthMeter)
	assert.Equal(t, model.EvidenceTypeFactCheck, ev.Type)
	assert.Equal(t, "PolitiFact", ev.SourceName)
	assert.Equal(t, "https://www.politifact.com/x", ev.SourceURL)
	assert.Equal(t, "snip", ev.Snippet)
}

func TestCrossReference_RanksFiltersAndTruncates(t *testing.T) {
	adapter := New(&fakeSearcher{results: corpus()})

	out := adapter.CrossReference(context.Background(), vaccineClaim, 5)
	require.Equal(t, Found, out.Kind)
	require.Len(t, out.Evidence, 3, "the unrelated statement is under the relevance floor")

	assert.Equal(t, "AFP", out.Evidence[0].SourceName)
	assert.Equal(t, "FactCheck.org", out.Evidence[1].SourceName)
	assert.Equal(t, "PolitiFact", out.Evidence[2].SourceName)
	for i := 1; i < len(out.Evidence); i++ {
		assert.GreaterOrEqual(t, out.Evidence[i-1].Similarity, out.Evidence[i].Similarity)
	}

	assert.Equal(t, model.StanceMixed, out.Evidence[0].Stance)
	assert.Equal(t, model.StanceRefutes, out.Evidence[1].Stance)

	top := adapter.CrossReference(context.Background(), vaccineClaim, 2)
	require.Len(t, top.Evidence, 2)
	assert.Equal(t, "AFP", top.Evidence[0].SourceName)
}

func TestCrossReference_DefaultTopK(t *testing.T) {
	var many []model.FactCheck
	for i := 0; i < 8; i++ {
		many = append(many, model.FactCheck{Statement: vaccineClaim, Rating: "true"})
	}
	adapter := New(&fakeSearcher{results: many})

	out := adapter.CrossReference(context.Background(), vaccineClaim, 0)
	assert.Len(t, out.Evidence, DefaultTopK)
}

func TestCrossReference_Empty(t *testing.T) {
	adapter := New(&fakeSearcher{results: []model.FactCheck{
		{Statement: "Stock markets rallied on Friday", Rating: "true"},
	}})

	out := adapter.CrossReference(context.Background(), vaccineClaim, 5)
	assert.Equal(t, Empty, out.Kind)
	assert.NotNil(t, out.Evidence)
	assert.Empty(t, out.Evidence)
	assert.NoError(t, out.Err)
}

func TestCrossReference_CachesRawResults(t *testing.T) {
	searcher := &fakeSearcher{results: corpus()}
	adapter := New(searcher, WithCache(newCache(t)))

	first := adapter.CrossReference(context.Background(), vaccineClaim, 1)
	require.Len(t, first.Evidence, 1)
	require.Equal(t, 1, searcher.callCount())

	// a larger topK is served from the untruncated cached set
	second := adapter.CrossReference(context.Background(), "  VACCINE X reduces hospitalization by 90% ", 5)
	assert.Equal(t, 1, searcher.callCount())
	assert.Len(t, second.Evidence, 3)
}

func TestCrossReference_CachesEmptyResults(t *testing.T) {
	searcher := &fakeSearcher{results: []model.FactCheck{}}
	adapter := New(searcher, WithCache(newCache(t)))

	adapter.CrossReference(context.Background(), vaccineClaim, 5)
	adapter.CrossReference(context.Background(), vaccineClaim, 5)
	assert.Equal(t, 1, searcher.callCount())
}

func TestCrossReference_PublisherFilterSeparatesCache(t *testing.T) {
	c := newCache(t)
	searcher := &fakeSearcher{results: corpus()}

	New(searcher, WithCache(c)).CrossReference(context.Background(), vaccineClaim, 5)
	New(searcher, WithCache(c), WithPublisherFilter("politifact.com")).CrossReference(context.Background(), vaccineClaim, 5)

	assert.Equal(t, 2, searcher.callCount())
}

func TestCrossReference_Unavailable(t *testing.T) {
	searcher := &fakeSearcher{err: &factcheck.StatusError{Source: "fake", StatusCode: 503}}
	adapter := New(searcher, WithCache(newCache(t)))

	out := adapter.CrossReference(context.Background(), vaccineClaim, 5)
	assert.Equal(t, Unavailable, out.Kind)
	assert.Error(t, out.Err)
	assert.NotNil(t, out.Evidence)
	assert.Empty(t, out.Evidence)

	// failures are not cached
	adapter.CrossReference(context.Background(), vaccineClaim, 5)
	assert.Equal(t, 2, searcher.callCount())

	assert.Empty(t, adapter.Evidence(context.Background(), vaccineClaim, 5))
}

func (f *fakeSearcher) set(results []model.FactCheck, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results, f.err = results, err
}

func TestCrossReference_PartialResultsNotCached(t *testing.T) {
	google := &fakeSearcher{err: &factcheck.StatusError{Source: "google", StatusCode: 503}}
	politifact := &fakeSearcher{results: []model.FactCheck{}}
	adapter := New(factcheck.NewMulti(nil, google, politifact), WithCache(newCache(t)))

	first := adapter.CrossReference(context.Background(), vaccineClaim, 5)
	assert.Equal(t, Empty, first.Kind)
	assert.NoError(t, first.Err)

	google.set(corpus(), nil)

	second := adapter.CrossReference(context.Background(), vaccineClaim, 5)
	assert.Equal(t, 2, google.callCount(), "a failed source is asked again")
	require.Equal(t, Found, second.Kind)
	assert.Len(t, second.Evidence, 3)

	// the complete set is cached now
	adapter.CrossReference(context.Background(), vaccineClaim, 5)
	assert.Equal(t, 2, google.callCount())
	assert.Equal(t, 2, politifact.callCount())
}

func TestCrossReference_PartialResultsRanked(t *testing.T) {
	failing := &fakeSearcher{err: errors.New("connection reset")}
	working := &fakeSearcher{results: corpus()}
	adapter := New(factcheck.NewMulti(nil, failing, working))

	out := adapter.CrossReference(context.Background(), vaccineClaim, 5)
	require.Equal(t, Found, out.Kind)
	assert.Len(t, out.Evidence, 3)
	assert.Equal(t, "AFP", out.Evidence[0].SourceName)
}

func TestCrossReference_NoSearcher(t *testing.T) {
	adapter := New(nil)

	out := adapter.CrossReference(context.Background(), vaccineClaim, 5)
	assert.Equal(t, Unavailable, out.Kind)
	assert.True(t, errors.Is(out.Err, factcheck.ErrNoCredentials))
	assert.Empty(t, out.Evidence)
}

func TestCrossReference_RelevanceFloorAndStanceOptions(t *testing.T) {
	adapter := New(&fakeSearcher{results: corpus()},
		WithRelevanceFloor(0.9),
		WithStanceClassifier(match.StanceClassifier{SupportsAt: 0.5, RefutesAt: 0.1}),
	)

	out := adapter.CrossReference(context.Background(), vaccineClaim, 5)
	require.Len(t, out.Evidence, 1)
	assert.Equal(t, "AFP", out.Evidence[0].SourceName)
	assert.Equal(t, model.StanceSupports, out.Evidence[0].Stance, "half true meets a 0.5 supports threshold")
}

func TestCrossReference_ThrottledAcrossClaims(t *testing.T) {
	delay := 60 * time.Millisecond
	limiter := worker.NewLimiter(delay)
	searcher := &fakeSearcher{results: corpus()}
	adapter := New(factcheck.Throttle(searcher, limiter), WithCache(newCache(t)))

	claims := []string{"first claim text here", "second claim text here", "third claim text here"}
	worker.Map(context.Background(), 3, len(claims), func(ctx context.Context, i int) Outcome {
		return adapter.CrossReference(ctx, claims[i], 5)
	})

	require.Len(t, searcher.stamps, 3)
	for i := 1; i < len(searcher.stamps); i++ {
		gap := searcher.stamps[i].Sub(searcher.stamps[i-1])
		assert.GreaterOrEqual(t, gap, delay-5*time.Millisecond)
	}
}

func TestAggregate(t *testing.T) {
	assert.Equal(t, 0.0, Aggregate(nil))
	assert.Equal(t, 0.0, Aggregate([]model.Claim{{Text: "a"}, {Text: "b"}}))

	claims := []model.Claim{
		{Text: "many weak", Evidence: []model.Evidence{{Similarity: 0.2}, {Similarity: 0.2}, {Similarity: 0.2}}},
		{Text: "one strong", Evidence: []model.Evidence{{Similarity: 1.0}}},
		{Text: "none"},
	}
	assert.InDelta(t, 0.4, Aggregate(claims), 1e-9)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "found", Found.String())
	assert.Equal(t, "empty", Empty.String())
	assert.Equal(t, "unavailable", Unavailable.String())
}
