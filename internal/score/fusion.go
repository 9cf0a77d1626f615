// Package score pools the per-analysis probabilities into one confidence.
package score

import (
	"fmt"
	"math"

	"github.com/ppiankov/credence/internal/model"
)

// epsilon keeps clamped probabilities away from infinite log-odds
const epsilon = 1e-6

// DefaultWeights favour cross-reference evidence over the two softer signals
var DefaultWeights = model.FusionWeights{Source: 0.4, Text: 0.4, Cross: 0.6}

const (
	// DefaultLikelyTrueAt is the lowest confidence labelled "Likely true"
	DefaultLikelyTrueAt = 0.7
	// DefaultUncertainAt is the lowest confidence labelled "Uncertain"
	DefaultUncertainAt = 0.45
)

const insufficientExplanation = "Insufficient data: No fact-check cross-references found for any claims."

// Fuser combines source prior, text consistency and cross-reference strength
// by weighted log-odds pooling
type Fuser struct {
	weights      model.FusionWeights
	likelyTrueAt float64
	uncertainAt  float64
}

// DefaultFuser uses the default weights and verdict thresholds
func DefaultFuser() *Fuser {
	return &Fuser{
		weights:      DefaultWeights,
		likelyTrueAt: DefaultLikelyTrueAt,
		uncertainAt:  DefaultUncertainAt,
	}
}

// NewFuser builds a fuser from configuration. Invalid weights fall back to
// DefaultWeights.
func NewFuser(cfg model.FusionConfig) *Fuser {
	f := DefaultFuser()
	if validWeights(cfg.Weights) {
		f.weights = cfg.Weights
	}
	if cfg.LikelyTrueAt > 0 {
		f.likelyTrueAt = cfg.LikelyTrueAt
	}
	if cfg.UncertainAt > 0 {
		f.uncertainAt = cfg.UncertainAt
	}
	return f
}

// Weights returns the weights applied when inputs carry none
func (f *Fuser) Weights() model.FusionWeights {
	return f.weights
}

// Fuse pools the inputs. Weights on in override the fuser's own when valid.
// A cross-reference of exactly zero means no fact-check matched any claim:
// fusion is skipped and the sentinel confidence -1 is returned.
func (f *Fuser) Fuse(in model.FusionInputs) model.FusionResult {
	if in.CrossReference == 0 {
		return model.FusionResult{
			Confidence:  model.InsufficientConfidence,
			Verdict:     model.VerdictInsufficientData,
			Explanation: insufficientExplanation,
		}
	}

	w := f.weights
	if validWeights(in.Weights) {
		w = in.Weights
	}
	total := w.Source + w.Text + w.Cross

	z := (w.Source*logit(in.SourcePrior) + w.Text*logit(in.TextConsistency) + w.Cross*logit(in.CrossReference)) / total
	confidence := logistic(z)
	verdict := f.Verdict(confidence)

	return model.FusionResult{
		Confidence: confidence,
		Verdict:    verdict,
		Explanation: fmt.Sprintf("Combined via weighted log-odds: source=%.2f, text=%.2f, cross-ref=%.2f → %.2f (%s).",
			in.SourcePrior, in.TextConsistency, in.CrossReference, confidence, verdict),
	}
}

// Verdict labels a confidence
func (f *Fuser) Verdict(confidence float64) string {
	switch {
	case confidence >= f.likelyTrueAt:
		return model.VerdictLikelyTrue
	case confidence >= f.uncertainAt:
		return model.VerdictUncertain
	default:
		return model.VerdictLikelyMisleading
	}
}

func validWeights(w model.FusionWeights) bool {
	if w.Source < 0 || w.Text < 0 || w.Cross < 0 {
		return false
	}
	return w.Source+w.Text+w.Cross > 0
}

func clamp(p float64) float64 {
	if math.IsNaN(p) {
		return 0.5
	}
	return math.Min(math.Max(p, epsilon), 1-epsilon)
}

func logit(p float64) float64 {
	p = clamp(p)
	return math.Log(p / (1 - p))
}

func logistic(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
