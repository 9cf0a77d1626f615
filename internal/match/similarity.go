package match

import (
	"strings"
	"unicode/utf8"
)

const (
	jaccardWeight      = 0.6
	bigramWeight       = 0.3
	substringBonus     = 0.2
	substringMinLength = 20
)

// Similarity scores how related two texts are, in [0,1]. It combines word
// overlap, character-bigram overlap, and a bonus when the shorter text appears
// verbatim inside the longer one. Returns 0 if either text is empty.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}

	t1 := strings.ToLower(strings.TrimSpace(a))
	t2 := strings.ToLower(strings.TrimSpace(b))

	score := jaccardWeight*WordJaccard(t1, t2) + bigramWeight*BigramJaccard(t1, t2)

	shorter, longer := t1, t2
	if utf8.RuneCountInString(t2) < utf8.RuneCountInString(t1) {
		shorter, longer = t2, t1
	}
	if utf8.RuneCountInString(shorter) > substringMinLength && strings.Contains(longer, shorter) {
		score += substringBonus
	}

	if score > 1.0 {
		return 1.0
	}
	return score
}

// WordJaccard is the Jaccard index of the whitespace-separated word sets
func WordJaccard(a, b string) float64 {
	return jaccard(wordSet(a), wordSet(b))
}

// BigramJaccard is the Jaccard index of the overlapping two-rune substrings.
// Texts shorter than two runes have no bigrams and score 0.
func BigramJaccard(a, b string) float64 {
	ba, bb := bigramSet(a), bigramSet(b)
	if len(ba) == 0 || len(bb) == 0 {
		return 0.0
	}
	return jaccard(ba, bb)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

func bigramSet(s string) map[string]struct{} {
	runes := []rune(s)
	set := make(map[string]struct{})
	for i := 0; i+1 < len(runes); i++ {
		set[string(runes[i:i+2])] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}
