package match

import "strings"

// TextSimilarity blends word-overlap (70%) with whole-string Jaro-Winkler
// (30%). An exact word match earns full credit, a fuzzy word match
// (Jaro-Winkler > 0.85) earns 0.8; words shorter than two characters are
// ignored.
func TextSimilarity(query, candidate string) float64 {
	q := NormalizeString(query)
	c := NormalizeString(candidate)
	if q == "" || c == "" {
		return 0
	}
	if q == c {
		return 1
	}

	return clamp01(0.7*wordOverlap(q, c) + 0.3*JaroWinklerSimilarity(q, c))
}

func wordOverlap(query, candidate string) float64 {
	qWords := significantWords(query)
	if len(qWords) == 0 {
		return 0
	}
	cWords := significantWords(candidate)

	cSet := make(map[string]bool, len(cWords))
	for _, w := range cWords {
		cSet[w] = true
	}

	var credit float64
	for _, qw := range qWords {
		if cSet[qw] {
			credit += 1.0
			continue
		}
		for _, cw := range cWords {
			if JaroWinklerSimilarity(qw, cw) > 0.85 {
				credit += 0.8
				break
			}
		}
	}
	return credit / float64(len(qWords))
}

func significantWords(s string) []string {
	var out []string
	for _, w := range strings.Fields(s) {
		if len(w) >= 2 {
			out = append(out, w)
		}
	}
	return out
}
