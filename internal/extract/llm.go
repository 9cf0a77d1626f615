package extract

import (
	"context"
	"fmt"
	"math"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/kaptinlin/jsonrepair"
	"github.com/ppiankov/credence/internal/llm"
	"github.com/ppiankov/credence/internal/model"
)

// maxPromptRunes bounds the article text sent to the model
const maxPromptRunes = 12000

const extractionSystem = "You extract checkable factual claims from news articles and rate how internally consistent the article is. You answer with JSON only."

const extractionPrompt = `A claim is a statement asserting a fact about the world that could be checked against a source.
Extract claims that carry numbers, statistics, dates, quantities or attributions to a person or institution.
Do not extract opinions, predictions, questions or editorial remarks.

Copy each claim verbatim from the article and give its character offsets in the article text.
Add a one-word topic such as health, election, economy, climate or science.

Also rate text_consistency from 0 to 1: 1 when the article never contradicts itself, 0 when its statements conflict.

Return one JSON object and nothing else:
{"claims": [{"claim": "...", "start_char": 0, "end_char": 10, "topic": "..."}], "text_consistency": 0.5}

Return {"claims": [], "text_consistency": 0.5} when there are no claims.

Article:
"""
%s
"""`

type llmClaim struct {
	Claim     string `json:"claim"`
	StartChar *int   `json:"start_char"`
	EndChar   *int   `json:"end_char"`
	Topic     string `json:"topic"`
}

type llmReply struct {
	Claims          []llmClaim `json:"claims"`
	TextConsistency *float64   `json:"text_consistency"`
}

// LLMExtractor asks a language model for claims and a consistency rating
type LLMExtractor struct {
	provider    llm.Provider
	model       string
	maxClaims   int
	consistency float64
}

// NewLLMExtractor creates an extractor backed by provider. An empty model
// uses the provider's configured model.
func NewLLMExtractor(provider llm.Provider, modelName string, cfg model.ExtractionConfig) *LLMExtractor {
	e := &LLMExtractor{
		provider:    provider,
		model:       modelName,
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

// Name returns "llm:" followed by the provider name
func (e *LLMExtractor) Name() string {
	return "llm:" + e.provider.Name()
}

// Extract prompts the model and validates its reply against text. Offsets
// that do not point at the claim are re-located, or dropped when the claim
// is not in the text verbatim.
func (e *LLMExtractor) Extract(ctx context.Context, text string) (*Extraction, error) {
	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		System: extractionSystem,
		Prompt: fmt.Sprintf(extractionPrompt, truncate(text, maxPromptRunes)),
		Model:  e.model,
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("claim extraction: %w", err)
	}

	reply, err := parseReply(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("claim extraction: %w", err)
	}

	runes := []rune(text)
	claims := make([]model.Claim, 0, len(reply.Claims))
	for _, c := range reply.Claims {
		claimText := strings.TrimSpace(c.Claim)
		if claimText == "" {
			continue
		}

		claim := model.Claim{
			Text:     claimText,
			Topic:    strings.ToLower(strings.TrimSpace(c.Topic)),
			Evidence: []model.Evidence{},
		}
		if validOffsets(runes, c.StartChar, c.EndChar, claimText) {
			claim.StartChar, claim.EndChar = model.Offsets(*c.StartChar, *c.EndChar)
		} else if start, end, ok := locate(text, claimText); ok {
			claim.StartChar, claim.EndChar = model.Offsets(start, end)
		}
		claims = append(claims, claim)
	}

	consistency := e.consistency
	if reply.TextConsistency != nil && !math.IsNaN(*reply.TextConsistency) {
		consistency = math.Max(0, math.Min(1, *reply.TextConsistency))
	}

	return &Extraction{
		Claims:          capClaims(dedupeClaims(claims), e.maxClaims),
		TextConsistency: consistency,
	}, nil
}

// parseReply decodes the model's answer, tolerating code fences, a bare
// claim array and malformed JSON
func parseReply(raw string) (*llmReply, error) {
	raw = stripFences(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty model reply")
	}

	decode := func(s string) (*llmReply, error) {
		var reply llmReply
		if strings.HasPrefix(s, "[") {
			if err := jsoniter.UnmarshalFromString(s, &reply.Claims); err != nil {
				return nil, err
			}
			return &reply, nil
		}
		if err := jsoniter.UnmarshalFromString(s, &reply); err != nil {
			return nil, err
		}
		return &reply, nil
	}

	reply, err := decode(raw)
	if err == nil {
		return reply, nil
	}
	originalErr := err

	repaired, repairErr := jsonrepair.JSONRepair(raw)
	if repairErr != nil {
		return nil, fmt.Errorf("decode model reply: %w", originalErr)
	}
	if reply, err := decode(strings.TrimSpace(repaired)); err == nil {
		return reply, nil
	}
	return nil, fmt.Errorf("decode model reply: %w", originalErr)
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func validOffsets(runes []rune, start, end *int, claim string) bool {
	if start == nil || end == nil {
		return false
	}
	s, e := *start, *end
	if s < 0 || e <= s || e > len(runes) {
		return false
	}
	return string(runes[s:e]) == claim
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
