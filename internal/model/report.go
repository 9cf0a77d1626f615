package model

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Report represents the complete analysis of one input text
type Report struct {
	ID         string    `json:"id"`                   // Analysis run identifier
	Subject    string    `json:"subject"`              // Human-readable subject (URL path or text prefix)
	SourceURL  string    `json:"source_url,omitempty"` // URL the text was published at, if known
	Domain     string    `json:"domain,omitempty"`     // Registered domain used for the source prior
	AnalyzedAt time.Time `json:"analyzed_at"`
	Extractor  string    `json:"extractor"` // Which claim extractor produced the claims

	SourcePrior     float64 `json:"source_prior"`
	TextConsistency float64 `json:"text_consistency"`
	CrossReference  float64 `json:"cross_reference"`

	Fusion FusionResult `json:"fusion"`
	Claims []Claim      `json:"claims"`

	Warnings []string `json:"warnings,omitempty"` // Degradations that did not fail the analysis
}

// NewReport creates an empty report with a fresh identifier
func NewReport(sourceURL string) *Report {
	return &Report{
		ID:         uuid.NewString(),
		SourceURL:  sourceURL,
		AnalyzedAt: time.Now().UTC(),
		Claims:     []Claim{},
	}
}

// EvidenceCount returns the number of evidence items across all claims
func (r *Report) EvidenceCount() int {
	n := 0
	for _, c := range r.Claims {
		n += len(c.Evidence)
	}
	return n
}

// Verdict labels produced by confidence fusion
const (
	VerdictLikelyTrue       = "Likely true"
	VerdictUncertain        = "Uncertain"
	VerdictLikelyMisleading = "Likely misleading"
	VerdictInsufficientData = "Insufficient data"
)

// InsufficientConfidence is the sentinel confidence reported when no
// fact-check evidence matched any claim
const InsufficientConfidence = -1.0

// FusionWeights are the relative weights of the three fused signals
type FusionWeights struct {
	Source float64 `json:"source" yaml:"source" mapstructure:"source"`
	Text   float64 `json:"text" yaml:"text" mapstructure:"text"`
	Cross  float64 `json:"cross" yaml:"cross" mapstructure:"cross"`
}

// FusionInputs holds the probabilities pooled by confidence fusion
type FusionInputs struct {
	SourcePrior     float64
	TextConsistency float64
	CrossReference  float64
	Weights         FusionWeights
}

// FusionResult is the pooled confidence with its verdict
type FusionResult struct {
	Confidence  float64 `json:"confidence"` // 0-1, or -1 when there is no evidence
	Verdict     string  `json:"verdict"`
	Explanation string  `json:"explanation"`
}

// Insufficient reports whether fusion was bypassed for lack of evidence
func (f FusionResult) Insufficient() bool {
	return f.Verdict == VerdictInsufficientData
}

// SubjectFrom derives a short subject from the source URL or, failing that, the text
func SubjectFrom(rawURL, text string) string {
	if rawURL != "" {
		if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
			path := strings.Trim(parsed.Path, "/")
			if path == "" {
				return parsed.Host
			}
			segments := strings.Split(path, "/")
			last := segments[len(segments)-1]
			last = strings.ReplaceAll(last, "_", " ")
			last = strings.ReplaceAll(last, "-", " ")
			if idx := strings.LastIndex(last, "."); idx > 0 {
				last = last[:idx]
			}
			return last
		}
	}

	words := strings.Fields(text)
	if len(words) > 8 {
		return strings.Join(words[:8], " ") + "..."
	}
	return strings.Join(words, " ")
}
