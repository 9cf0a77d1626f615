package factcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ppiankov/credence/internal/match"
	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/util"
)

// DefaultGoogleURL is the Fact Check Tools claim search endpoint
const DefaultGoogleURL = "https://factchecktools.googleapis.com/v1alpha1/claims:search"

// GoogleClient searches the Google Fact Check Tools API, which aggregates
// reviews from PolitiFact, Snopes, FactCheck.org and others
type GoogleClient struct {
	apiKey          string
	baseURL         string
	pageSize        int
	languageCode    string
	publisherFilter string
	userAgent       string
	httpClient      *http.Client
}

// NewGoogleClient creates a client from configuration
func NewGoogleClient(cfg model.FactCheckConfig, httpCfg model.HTTPConfig) *GoogleClient {
	baseURL := cfg.GoogleBaseURL
	if baseURL == "" {
		baseURL = DefaultGoogleURL
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100 // API maximum
	}

	language := cfg.LanguageCode
	if language == "" {
		language = "en"
	}

	return &GoogleClient{
		apiKey:          cfg.GoogleAPIKey,
		baseURL:         baseURL,
		pageSize:        pageSize,
		languageCode:    language,
		publisherFilter: cfg.PublisherFilter,
		userAgent:       httpCfg.UserAgent,
		httpClient:      util.NewHTTPClient(cfg.GoogleTimeout, httpCfg),
	}
}

// Name returns the searcher name
func (c *GoogleClient) Name() string {
	return "google"
}

// Endpoint returns the URL searches are sent to
func (c *GoogleClient) Endpoint() string {
	return c.baseURL
}

// PublisherFilter returns the configured reviewPublisherSiteFilter
func (c *GoogleClient) PublisherFilter() string {
	return c.publisherFilter
}

type googleResponse struct {
	Claims []googleClaim `json:"claims"`
}

type googleClaim struct {
	Text     string         `json:"text"`
	Claimant string         `json:"claimant"`
	Reviews  []googleReview `json:"claimReview"`
}

type googleReview struct {
	Publisher struct {
		Name string `json:"name"`
		Site string `json:"site"`
	} `json:"publisher"`
	URL           string `json:"url"`
	ReviewDate    string `json:"reviewDate"`
	TextualRating string `json:"textualRating"`
}

// Search queries the API for fact-checks matching claim
func (c *GoogleClient) Search(ctx context.Context, claim string) ([]model.FactCheck, error) {
	if c.apiKey == "" {
		return nil, ErrNoCredentials
	}

	params := url.Values{}
	params.Set("query", claim)
	params.Set("pageSize", strconv.Itoa(c.pageSize))
	params.Set("languageCode", c.languageCode)
	params.Set("key", c.apiKey)
	if c.publisherFilter != "" {
		params.Set("reviewPublisherSiteFilter", c.publisherFilter)
	}

	reqURL := c.baseURL
	if strings.Contains(reqURL, "?") {
		reqURL += "&" + params.Encode()
	} else {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google fact check request: %w", redactKey(err, c.apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Source: c.Name(), StatusCode: resp.StatusCode, Body: prefix(string(body), 500)}
	}

	var data googleResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode google response: %w", err)
	}

	results := make([]model.FactCheck, 0, len(data.Claims))
	for _, cl := range data.Claims {
		if fc, ok := parseGoogleClaim(cl); ok {
			results = append(results, fc)
		}
	}

	return results, nil
}

// parseGoogleClaim uses the first review of a claim, which the API orders
// by relevance. Claims without reviews are skipped.
func parseGoogleClaim(cl googleClaim) (model.FactCheck, bool) {
	if len(cl.Reviews) == 0 {
		return model.FactCheck{}, false
	}
	review := cl.Reviews[0]

	rating := strings.ToLower(strings.TrimSpace(review.TextualRating))
	publisher := review.Publisher.Name
	if publisher == "" {
		publisher = "Unknown"
	}

	return model.FactCheck{
		Statement:     cl.Text,
		Rating:        rating,
		RatingScore:   match.NormalizeRating(rating),
		Publisher:     publisher,
		PublisherSite: review.Publisher.Site,
		SourceURL:     review.URL,
		Snippet:       truncateRunes(cl.Text, 300),
		PublishDate:   prefix(review.ReviewDate, 10),
		Claimant:      cl.Claimant,
	}, true
}

// redactKey keeps the API key out of logged transport errors, which embed
// the request URL
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), key, "REDACTED"))
}
