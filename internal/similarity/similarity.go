// Package similarity scores lexical overlap between review comment bodies.
// It is a cheap acceptance filter, not a semantic matcher: paraphrased
// duplicates are expected to score low and that is acceptable.
package similarity

import (
	"regexp"
	"sort"
	"strings"

	"github.com/myk-org/prreview/internal/domain/model"
)

// tokenPattern extracts lowercase alphanumeric runs; everything else
// (whitespace, punctuation, symbols) is a separator.
var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// maxTokens bounds the token set size on pathological inputs such as pasted
// logs. Oversized sets are sorted before truncation so the result stays
// deterministic.
const maxTokens = 2000

// DefaultThreshold is the minimum Jaccard score at which two comment bodies
// are treated as duplicates throughout the auto-skip pipeline.
const DefaultThreshold = 0.6

// Score returns the Jaccard index of the two bodies' token sets, in [0, 1].
// Case-insensitive, punctuation-insensitive, order-insensitive. Returns 0
// when either body has no tokens.
func Score(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(body string) map[string]struct{} {
	tokens := tokenPattern.FindAllString(strings.ToLower(body), -1)

	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}

	if len(set) > maxTokens {
		sorted := make([]string, 0, len(set))
		for tok := range set {
			sorted = append(sorted, tok)
		}
		sort.Strings(sorted)

		set = make(map[string]struct{}, maxTokens)
		for _, tok := range sorted[:maxTokens] {
			set[tok] = struct{}{}
		}
	}

	return set
}

// BestMatch returns the candidate whose body scores highest against body,
// provided that score is at least threshold; nil when none qualifies.
// Ties keep the first candidate encountered, so callers control tie-breaking
// through candidate order.
func BestMatch(candidates []model.Comment, body string, threshold float64) *model.Comment {
	var best *model.Comment
	bestScore := 0.0

	for i := range candidates {
		score := Score(candidates[i].Body, body)
		if score >= threshold && score > bestScore {
			best = &candidates[i]
			bestScore = score
		}
	}

	return best
}
