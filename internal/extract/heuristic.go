package extract

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/ppiankov/credence/internal/model"
)

const (
	minSentenceRunes = 30
	maxSentenceRunes = 500
)

// statisticPattern matches a number followed by a unit that makes it checkable
var statisticPattern = regexp.MustCompile(`(?i)\d[\d,.]*\s?(%|percent\b|per cent\b|million\b|billion\b|trillion\b|thousand\b|times\b)`)

// keywordGroups are checked in order; the first matching keyword labels the claim
var keywordGroups = [][]string{
	// Attribution
	{"according to", "reported", "announced", "said", "says", "study found", "studies show", "survey", "data show"},
	// Origin and history
	{"originated", "origin", "first", "introduced", "invented", "established", "founded", "created", "discovered", "developed"},
	// Definitions and legal
	{"is defined as", "is legally", "under the law", "under this act", "shall", "must", "is required"},
}

// HeuristicExtractor picks sentences that carry statistics, attributions or
// other checkable markers. It never calls out and cannot judge consistency,
// so TextConsistency is always the configured default.
type HeuristicExtractor struct {
	maxClaims   int
	consistency float64
}

// NewHeuristicExtractor creates a heuristic extractor. Non-positive settings
// fall back to the package defaults.
func NewHeuristicExtractor(cfg model.ExtractionConfig) *HeuristicExtractor {
	e := &HeuristicExtractor{
		maxClaims:   cfg.MaxClaims,
		consistency: cfg.DefaultTextConsistency,
	}
	if e.maxClaims <= 0 {
		e.maxClaims = DefaultMaxClaims
	}
	if e.consistency <= 0 || e.consistency > 1 {
		e.consistency = DefaultTextConsistency
	}
	return e
}

// Name returns the extractor name
func (e *HeuristicExtractor) Name() string {
	return "heuristic"
}

// Extract returns the matching sentences of text in order of appearance
func (e *HeuristicExtractor) Extract(ctx context.Context, text string) (*Extraction, error) {
	var claims []model.Claim

	for _, s := range splitSentences(text) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		heuristic := classify(s.text)
		if heuristic == "" {
			continue
		}

		start, end := model.Offsets(s.start, s.end)
		claims = append(claims, model.Claim{
			Text:      s.text,
			StartChar: start,
			EndChar:   end,
			Heuristic: heuristic,
			Evidence:  []model.Evidence{},
		})
	}

	return &Extraction{
		Claims:          capClaims(dedupeClaims(claims), e.maxClaims),
		TextConsistency: e.consistency,
	}, nil
}

// classify returns the rule a sentence matches, or "" when it carries no
// checkable marker
func classify(sentence string) string {
	if statisticPattern.MatchString(sentence) {
		return "statistic"
	}

	lower := strings.ToLower(sentence)
	for _, group := range keywordGroups {
		for _, kw := range group {
			if strings.Contains(lower, kw) {
				return "keyword:" + kw
			}
		}
	}
	return ""
}

type sentence struct {
	text       string
	start, end int // rune offsets, end exclusive
}

// splitSentences splits on terminal punctuation followed by whitespace and
// on blank lines. Sentences outside the length bounds are dropped.
func splitSentences(text string) []sentence {
	runes := []rune(text)
	var sentences []sentence
	start := 0

	flush := func(end int) {
		s, e := start, end
		for s < e && unicode.IsSpace(runes[s]) {
			s++
		}
		for e > s && unicode.IsSpace(runes[e-1]) {
			e--
		}
		if n := e - s; n >= minSentenceRunes && n <= maxSentenceRunes {
			sentences = append(sentences, sentence{
				text:  string(runes[s:e]),
				start: s,
				end:   e,
			})
		}
		start = end
	}

	for i, r := range runes {
		atEnd := i+1 == len(runes)
		switch {
		case r == '.' || r == '!' || r == '?':
			// Look ahead to avoid splitting decimals and dotted names
			if atEnd || unicode.IsSpace(runes[i+1]) {
				flush(i + 1)
			}
		case r == '\n' && !atEnd && runes[i+1] == '\n':
			flush(i + 1)
		}
	}

	if start < len(runes) {
		flush(len(runes))
	}

	return sentences
}
