package score

import (
	"math"
	"strings"
	"testing"

	"github.com/ppiankov/credence/internal/model"
)

func fuse(f *Fuser, source, text, cross float64) model.FusionResult {
	return f.Fuse(model.FusionInputs{SourcePrior: source, TextConsistency: text, CrossReference: cross})
}

func TestFuse_LowEvidence(t *testing.T) {
	result := fuse(DefaultFuser(), 0.6, 0.4, 0.1)

	if result.Confidence >= 0.45 {
		t.Errorf("expected confidence < 0.45, got %f", result.Confidence)
	}
	if math.Abs(result.Confidence-0.2806) > 1e-3 {
		t.Errorf("expected confidence ~0.2806, got %f", result.Confidence)
	}
	if result.Verdict != model.VerdictLikelyMisleading {
		t.Errorf("expected %q, got %q", model.VerdictLikelyMisleading, result.Verdict)
	}

	want := "Combined via weighted log-odds: source=0.60, text=0.40, cross-ref=0.10 → 0.28 (Likely misleading)."
	if result.Explanation != want {
		t.Errorf("unexpected explanation:\n got %q\nwant %q", result.Explanation, want)
	}
}

func TestFuse_StrongEvidence(t *testing.T) {
	result := fuse(DefaultFuser(), 0.8, 0.8, 0.7)

	if result.Confidence < 0.7 {
		t.Errorf("expected confidence >= 0.7, got %f", result.Confidence)
	}
	if result.Verdict != model.VerdictLikelyTrue {
		t.Errorf("expected %q, got %q", model.VerdictLikelyTrue, result.Verdict)
	}
}

func TestFuse_Uncertain(t *testing.T) {
	result := fuse(DefaultFuser(), 0.5, 0.5, 0.5)

	if math.Abs(result.Confidence-0.5) > 1e-9 {
		t.Errorf("expected 0.5, got %f", result.Confidence)
	}
	if result.Verdict != model.VerdictUncertain {
		t.Errorf("expected %q, got %q", model.VerdictUncertain, result.Verdict)
	}
}

func TestFuse_Monotonic(t *testing.T) {
	f := DefaultFuser()
	prev := -1.0
	for p := 0.05; p < 1.0; p += 0.05 {
		c := fuse(f, p, p, p).Confidence
		if c <= prev {
			t.Fatalf("confidence not increasing at p=%.2f: %f <= %f", p, c, prev)
		}
		prev = c
	}
}

func TestFuse_InsufficientData(t *testing.T) {
	f := DefaultFuser()
	for _, in := range [][2]float64{{0.9, 0.9}, {0.1, 0.1}, {0.5, 0.5}} {
		result := fuse(f, in[0], in[1], 0.0)

		if result.Confidence != model.InsufficientConfidence {
			t.Errorf("expected sentinel -1, got %f", result.Confidence)
		}
		if result.Verdict != model.VerdictInsufficientData {
			t.Errorf("expected %q, got %q", model.VerdictInsufficientData, result.Verdict)
		}
		if result.Explanation != "Insufficient data: No fact-check cross-references found for any claims." {
			t.Errorf("unexpected explanation %q", result.Explanation)
		}
		if !result.Insufficient() {
			t.Error("expected Insufficient() to be true")
		}
	}
}

func TestFuse_ClampsExtremes(t *testing.T) {
	f := DefaultFuser()

	for _, in := range [][3]float64{{0, 0, 1e-9}, {1, 1, 1}, {-3, 7, 0.5}} {
		result := fuse(f, in[0], in[1], in[2])
		if math.IsNaN(result.Confidence) || math.IsInf(result.Confidence, 0) {
			t.Fatalf("non-finite confidence for %v", in)
		}
		if result.Confidence < 0 || result.Confidence > 1 {
			t.Errorf("confidence %f out of range for %v", result.Confidence, in)
		}
	}
}

func TestFuse_WeightsNormalized(t *testing.T) {
	f := DefaultFuser()

	scaled := f.Fuse(model.FusionInputs{
		SourcePrior: 0.6, TextConsistency: 0.4, CrossReference: 0.1,
		Weights: model.FusionWeights{Source: 4, Text: 4, Cross: 6},
	})
	base := fuse(f, 0.6, 0.4, 0.1)
	if math.Abs(scaled.Confidence-base.Confidence) > 1e-12 {
		t.Errorf("scaling weights changed the result: %f vs %f", scaled.Confidence, base.Confidence)
	}

	equal := f.Fuse(model.FusionInputs{
		SourcePrior: 0.6, TextConsistency: 0.4, CrossReference: 0.1,
		Weights: model.FusionWeights{Source: 1, Text: 1, Cross: 1},
	})
	if math.Abs(equal.Confidence-0.3247) > 1e-3 {
		t.Errorf("expected ~0.3247 with equal weights, got %f", equal.Confidence)
	}
}

func TestNewFuser_InvalidWeightsFallBack(t *testing.T) {
	f := NewFuser(model.FusionConfig{Weights: model.FusionWeights{Source: -1, Text: 1, Cross: 1}})
	if f.Weights() != DefaultWeights {
		t.Errorf("expected default weights, got %+v", f.Weights())
	}

	zero := NewFuser(model.FusionConfig{})
	if zero.Weights() != DefaultWeights {
		t.Errorf("expected default weights for zero config, got %+v", zero.Weights())
	}
}

func TestNewFuser_Thresholds(t *testing.T) {
	f := NewFuser(model.FusionConfig{Weights: DefaultWeights, LikelyTrueAt: 0.9, UncertainAt: 0.2})

	result := fuse(f, 0.8, 0.8, 0.7)
	if result.Verdict != model.VerdictUncertain {
		t.Errorf("expected %q with raised threshold, got %q", model.VerdictUncertain, result.Verdict)
	}
	if !strings.HasSuffix(result.Explanation, "(Uncertain).") {
		t.Errorf("explanation should carry the verdict: %q", result.Explanation)
	}

	if got := f.Verdict(0.25); got != model.VerdictUncertain {
		t.Errorf("expected %q at 0.25, got %q", model.VerdictUncertain, got)
	}
}
