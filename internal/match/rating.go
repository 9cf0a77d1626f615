package match

import "strings"

// UnknownRatingScore is returned for ratings no table entry recognises
const UnknownRatingScore = 0.5

type ratingEntry struct {
	label string
	score float64
}

// ratingTable maps fact-checker vocabularies to truth scores. Order matters
// for substring matching: compound labels precede the single words they
// contain ("mostly true" before "true", "incorrect" before "correct").
var ratingTable = []ratingEntry{
	{"mostly true", 0.75},
	{"mostly correct", 0.75},
	{"half true", 0.5},
	{"mostly false", 0.25},
	{"mostly incorrect", 0.25},
	{"pants on fire", 0.0},
	{"pants fire", 0.0},
	{"incorrect", 0.05},
	{"true", 0.95},
	{"correct", 0.95},
	{"accurate", 0.95},
	{"mixture", 0.5},
	{"mixed", 0.5},
	{"unproven", 0.4},
	{"undetermined", 0.4},
	{"false", 0.05},
	{"legend", 0.0},
	{"outdated", 0.3},
	{"misleading", 0.2},
}

var ratingIndex = func() map[string]float64 {
	m := make(map[string]float64, len(ratingTable))
	for _, e := range ratingTable {
		m[e.label] = e.score
	}
	return m
}()

// NormalizeRating converts a free-text truth rating into a score in [0,1],
// where 1 is definitively true. It never fails: unrecognised ratings score 0.5.
func NormalizeRating(rating string) float64 {
	r := canonicalRating(rating)
	if r == "" {
		return UnknownRatingScore
	}

	if score, ok := ratingIndex[r]; ok {
		return score
	}

	for _, e := range ratingTable {
		if strings.Contains(r, e.label) {
			return e.score
		}
	}

	return UnknownRatingScore
}

// canonicalRating lower-cases, trims and folds slug separators so that
// "Mostly-True", "mostly_true" and "mostly true" compare equal
func canonicalRating(rating string) string {
	r := strings.ToLower(strings.TrimSpace(rating))
	r = strings.NewReplacer("-", " ", "_", " ").Replace(r)
	return strings.Join(strings.Fields(r), " ")
}
