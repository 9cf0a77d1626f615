package factcheck

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const googleBody = `{
  "claims": [
    {
      "text": "Vaccine X cuts hospitalization risk by 90 percent",
      "claimant": "Health Ministry",
      "claimReview": [
        {
          "publisher": {"name": "PolitiFact", "site": "politifact.com"},
          "url": "https://www.politifact.com/factchecks/2024/vaccine-x/",
          "reviewDate": "2024-01-15T08:00:00Z",
          "textualRating": "Mostly-True"
        },
        {
          "publisher": {"name": "Snopes", "site": "snopes.com"},
          "url": "https://www.snopes.com/fact-check/vaccine-x/",
          "textualRating": "False"
        }
      ]
    },
    {"text": "A claim nobody reviewed", "claimReview": []},
    {
      "text": "Moon is made of cheese",
      "claimReview": [{"publisher": {}, "url": "https://example.org/cheese", "textualRating": "Pants on Fire"}]
    }
  ]
}`

func googleConfig(baseURL string) model.FactCheckConfig {
	cfg := model.DefaultConfig().FactCheck
	cfg.GoogleBaseURL = baseURL
	cfg.GoogleAPIKey = "test-key"
	cfg.GoogleTimeout = 5 * time.Second
	return cfg
}

func TestGoogleClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "vaccine x", q.Get("query"))
		assert.Equal(t, "20", q.Get("pageSize"))
		assert.Equal(t, "en", q.Get("languageCode"))
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Equal(t, "politifact.com", q.Get("reviewPublisherSiteFilter"))
		assert.Equal(t, "Credence/test", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(googleBody))
	}))
	defer server.Close()

	cfg := googleConfig(server.URL)
	cfg.PublisherFilter = "politifact.com"
	client := NewGoogleClient(cfg, model.HTTPConfig{UserAgent: "Credence/test"})

	results, err := client.Search(context.Background(), "vaccine x")
	require.NoError(t, err)
	require.Len(t, results, 2, "claims without reviews are skipped")

	first := results[0]
	assert.Equal(t, "Vaccine X cuts hospitalization risk by 90 percent", first.Statement)
	assert.Equal(t, "mostly-true", first.Rating)
	assert.Equal(t, 0.75, first.RatingScore)
	assert.Equal(t, "PolitiFact", first.Publisher)
	assert.Equal(t, "politifact.com", first.PublisherSite)
	assert.Equal(t, "2024-01-15", first.PublishDate)
	assert.Equal(t, "Health Ministry", first.Claimant)
	assert.Equal(t, first.Statement, first.Snippet)

	second := results[1]
	assert.Equal(t, "Unknown", second.Publisher)
	assert.Equal(t, 0.0, second.RatingScore)
}

func TestGoogleClient_NoKey(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	cfg := googleConfig(server.URL)
	cfg.GoogleAPIKey = ""
	client := NewGoogleClient(cfg, model.HTTPConfig{})

	_, err := client.Search(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrNoCredentials)
	assert.False(t, called)
}

func TestGoogleClient_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 429, "message": "quota"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewGoogleClient(googleConfig(server.URL), model.HTTPConfig{})

	_, err := client.Search(context.Background(), "anything")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Contains(t, statusErr.Error(), "quota")
}

func TestGoogleClient_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"claims": [`))
	}))
	defer server.Close()

	client := NewGoogleClient(googleConfig(server.URL), model.HTTPConfig{})

	_, err := client.Search(context.Background(), "anything")
	assert.Error(t, err)
}

func TestGoogleClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	cfg := googleConfig(server.URL)
	cfg.GoogleTimeout = 20 * time.Millisecond
	client := NewGoogleClient(cfg, model.HTTPConfig{})

	_, err := client.Search(context.Background(), "anything")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "test-key")
}

func TestGoogleClient_SnippetCapped(t *testing.T) {
	long := strings.Repeat("é", 350)
	fc, ok := parseGoogleClaim(googleClaim{Text: long, Reviews: []googleReview{{TextualRating: "True"}}})
	require.True(t, ok)
	assert.Equal(t, 300, len([]rune(fc.Snippet)))
	assert.Equal(t, long, fc.Statement)
}

func TestPolitiFactClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "vaccine x", r.URL.Query().Get("search"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))

		_, _ = w.Write([]byte(`{"results": [
			{"statement": "Vaccine X cuts hospitalization risk by 90 percent",
			 "url": "/factchecks/2024/jan/15/vaccine-x/",
			 "date": "2024-01-15T00:00:00",
			 "rating": {"slug": "mostly-true"},
			 "speaker": {"name": "Jane Doe"}},
			{"statement": "` + strings.Repeat("a", 250) + `",
			 "url": "/factchecks/long/",
			 "rating": {},
			 "speaker": "John Roe"}
		]}`))
	}))
	defer server.Close()

	cfg := model.DefaultConfig().FactCheck
	cfg.PolitiFactBaseURL = server.URL
	client := NewPolitiFactClient(cfg, model.HTTPConfig{})

	results, err := client.Search(context.Background(), "vaccine x")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "mostly-true", results[0].Rating)
	assert.Equal(t, 0.75, results[0].RatingScore)
	assert.Equal(t, "https://www.politifact.com/factchecks/2024/jan/15/vaccine-x/", results[0].SourceURL)
	assert.Equal(t, "Jane Doe", results[0].Claimant)
	assert.Equal(t, "2024-01-15", results[0].PublishDate)
	assert.Equal(t, "PolitiFact", results[0].Publisher)

	assert.Equal(t, "unobservable", results[1].Rating)
	assert.Equal(t, 0.5, results[1].RatingScore)
	assert.Equal(t, "John Roe", results[1].Claimant)
	assert.Equal(t, 200, len(results[1].Snippet))
	assert.True(t, strings.HasSuffix(results[1].Snippet, "..."))
}

type stubSearcher struct {
	name    string
	results []model.FactCheck
	err     error
}

func (s *stubSearcher) Name() string { return s.name }

func (s *stubSearcher) Search(ctx context.Context, claim string) ([]model.FactCheck, error) {
	return s.results, s.err
}

func TestMulti_Search(t *testing.T) {
	a := &stubSearcher{name: "a", results: []model.FactCheck{{Statement: "one"}}}
	b := &stubSearcher{name: "b", err: errors.New("boom")}
	c := &stubSearcher{name: "c", results: []model.FactCheck{{Statement: "two"}, {Statement: "three"}}}

	m := NewMulti(nil, a, b, c)
	assert.Equal(t, "a+b+c", m.Name())

	results, err := m.Search(context.Background(), "claim")
	require.Len(t, results, 3)
	assert.Equal(t, "one", results[0].Statement)
	assert.Equal(t, "three", results[2].Statement)

	var partial *PartialError
	require.ErrorAs(t, err, &partial)
	assert.Contains(t, err.Error(), "b: boom")
}

func TestMulti_AllSucceed(t *testing.T) {
	m := NewMulti(nil,
		&stubSearcher{name: "a", results: []model.FactCheck{{Statement: "one"}}},
		&stubSearcher{name: "b"},
	)

	results, err := m.Search(context.Background(), "claim")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestMulti_AllFail(t *testing.T) {
	m := NewMulti(nil,
		&stubSearcher{name: "a", err: errors.New("down")},
		&stubSearcher{name: "b", err: ErrNoCredentials},
	)

	results, err := m.Search(context.Background(), "claim")
	require.Error(t, err)
	assert.Nil(t, results)
	assert.ErrorIs(t, err, ErrNoCredentials)

	var partial *PartialError
	assert.False(t, errors.As(err, &partial))
}

type endpointSearcher struct {
	stubSearcher
	endpoint string
	mu       sync.Mutex
	calls    []time.Time
}

func (s *endpointSearcher) Endpoint() string { return s.endpoint }

func (s *endpointSearcher) Search(ctx context.Context, claim string) ([]model.FactCheck, error) {
	s.mu.Lock()
	s.calls = append(s.calls, time.Now())
	s.mu.Unlock()
	return nil, nil
}

func TestThrottle_SpacesCalls(t *testing.T) {
	delay := 80 * time.Millisecond
	limiter := worker.NewLimiter(0)
	limiter.SetHostDelay("api.example.com", delay)

	inner := &endpointSearcher{stubSearcher: stubSearcher{name: "stub"}, endpoint: "https://api.example.com/search"}
	throttled := Throttle(inner, limiter)
	assert.Equal(t, "stub", throttled.Name())

	for i := 0; i < 3; i++ {
		_, err := throttled.Search(context.Background(), "claim")
		require.NoError(t, err)
	}

	require.Len(t, inner.calls, 3)
	for i := 1; i < len(inner.calls); i++ {
		gap := inner.calls[i].Sub(inner.calls[i-1])
		assert.GreaterOrEqual(t, gap, delay-5*time.Millisecond, "calls %d and %d", i-1, i)
	}
}

func TestThrottle_WithoutEndpoint(t *testing.T) {
	s := &stubSearcher{name: "plain"}
	assert.Same(t, Searcher(s), Throttle(s, worker.NewLimiter(time.Second)))
}

func TestConfigured(t *testing.T) {
	cfg := model.DefaultConfig().FactCheck

	cfg.Sources = []string{"google"}
	_, err := Configured(cfg, model.HTTPConfig{}, worker.NewLimiter(0), nil)
	assert.ErrorIs(t, err, ErrNoCredentials)

	cfg.GoogleAPIKey = "k"
	s, err := Configured(cfg, model.HTTPConfig{}, worker.NewLimiter(0), nil)
	require.NoError(t, err)
	assert.Equal(t, "google", s.Name())

	cfg.Sources = []string{"google", "politifact"}
	s, err = Configured(cfg, model.HTTPConfig{}, worker.NewLimiter(0), nil)
	require.NoError(t, err)
	assert.Equal(t, "google+politifact", s.Name())

	cfg.Sources = []string{"snopes"}
	_, err = Configured(cfg, model.HTTPConfig{}, nil, nil)
	assert.Error(t, err)
}
