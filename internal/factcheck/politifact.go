package factcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/ppiankov/credence/internal/match"
	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/util"
)

const (
	// DefaultPolitiFactURL is the public statements endpoint
	DefaultPolitiFactURL = "https://www.politifact.com/api/v/statements/"

	politiFactSite = "https://www.politifact.com"
)

// PolitiFactClient searches PolitiFact's public statements API. No key is
// required.
type PolitiFactClient struct {
	baseURL    string
	limit      int
	userAgent  string
	httpClient *http.Client
}

// NewPolitiFactClient creates a client from configuration
func NewPolitiFactClient(cfg model.FactCheckConfig, httpCfg model.HTTPConfig) *PolitiFactClient {
	baseURL := cfg.PolitiFactBaseURL
	if baseURL == "" {
		baseURL = DefaultPolitiFactURL
	}

	limit := cfg.PageSize
	if limit <= 0 {
		limit = 20
	}

	return &PolitiFactClient{
		baseURL:    baseURL,
		limit:      limit,
		userAgent:  httpCfg.UserAgent,
		httpClient: util.NewHTTPClient(cfg.PolitiFactTimeout, httpCfg),
	}
}

// Name returns the searcher name
func (c *PolitiFactClient) Name() string {
	return "politifact"
}

// Endpoint returns the URL searches are sent to
func (c *PolitiFactClient) Endpoint() string {
	return c.baseURL
}

type politiFactResponse struct {
	Results []politiFactStatement `json:"results"`
}

type politiFactStatement struct {
	Statement string `json:"statement"`
	URL       string `json:"url"`
	Date      string `json:"date"`
	Rating    struct {
		Slug string `json:"slug"`
	} `json:"rating"`
	Speaker jsoniter.RawMessage `json:"speaker"`
}

// Search queries PolitiFact for statements matching claim
func (c *PolitiFactClient) Search(ctx context.Context, claim string) ([]model.FactCheck, error) {
	params := url.Values{}
	params.Set("search", claim)
	params.Set("limit", strconv.Itoa(c.limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("politifact request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Source: c.Name(), StatusCode: resp.StatusCode, Body: prefix(string(body), 500)}
	}

	var data politiFactResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode politifact response: %w", err)
	}

	results := make([]model.FactCheck, 0, len(data.Results))
	for _, st := range data.Results {
		results = append(results, parsePolitiFactStatement(st))
	}

	return results, nil
}

func parsePolitiFactStatement(st politiFactStatement) model.FactCheck {
	rating := strings.ToLower(strings.TrimSpace(st.Rating.Slug))
	if rating == "" {
		rating = "unobservable"
	}

	snippet := st.Statement
	if len([]rune(snippet)) > 200 {
		snippet = truncateRunes(snippet, 197) + "..."
	}

	return model.FactCheck{
		Statement:     st.Statement,
		Rating:        rating,
		RatingScore:   match.NormalizeRating(rating),
		Publisher:     "PolitiFact",
		PublisherSite: "politifact.com",
		SourceURL:     politiFactSite + st.URL,
		Snippet:       snippet,
		PublishDate:   prefix(st.Date, 10),
		Claimant:      speakerName(st.Speaker),
	}
}

// speakerName accepts either {"name": "..."} or a bare string
func speakerName(raw jsoniter.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "Unknown"
	}

	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Name != "" {
			return obj.Name
		}
		return "Unknown"
	}

	var name string
	if err := json.Unmarshal(raw, &name); err == nil && name != "" {
		return name
	}
	return "Unknown"
}
