package match

import "github.com/ppiankov/credence/internal/model"

// StanceClassifier maps a normalized truth score onto supports/refutes/mixed
type StanceClassifier struct {
	SupportsAt float64 // Scores at or above this support the claim
	RefutesAt  float64 // Scores at or below this refute it
}

// DefaultStanceClassifier uses the 0.7 / 0.3 thresholds
func DefaultStanceClassifier() StanceClassifier {
	return StanceClassifier{SupportsAt: 0.7, RefutesAt: 0.3}
}

// NewStanceClassifier builds a classifier from configuration
func NewStanceClassifier(cfg model.StanceConfig) StanceClassifier {
	return StanceClassifier{SupportsAt: cfg.SupportsAt, RefutesAt: cfg.RefutesAt}
}

// Classify returns the stance for a truth score. Both thresholds are inclusive.
func (s StanceClassifier) Classify(truthScore float64) model.Stance {
	switch {
	case truthScore >= s.SupportsAt:
		return model.StanceSupports
	case truthScore <= s.RefutesAt:
		return model.StanceRefutes
	default:
		return model.StanceMixed
	}
}
