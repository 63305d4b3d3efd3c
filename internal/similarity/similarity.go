// Package similarity scores free-text queries against candidate texts.
//
// TokenSet compares the word sets of both strings: it is insensitive to case,
// word order and repeated words, and gives 1.0 whenever one side's vocabulary
// is contained in the other's. Character-level closeness of the remaining
// words is measured with Ratio, a normalized Indel edit distance.
package similarity

import (
	"sort"
	"strings"
)

// TokenSet returns the token-set similarity of query and candidate in [0, 1].
// It returns 0 when either side has no tokens.
func TokenSet(query, candidate string) float64 {
	qTokens := tokenize(query)
	cTokens := tokenize(candidate)
	if len(qTokens) == 0 || len(cTokens) == 0 {
		return 0
	}

	var sect, onlyQ, onlyC []string
	for t := range qTokens {
		if _, ok := cTokens[t]; ok {
			sect = append(sect, t)
		} else {
			onlyQ = append(onlyQ, t)
		}
	}
	for t := range cTokens {
		if _, ok := qTokens[t]; !ok {
			onlyC = append(onlyC, t)
		}
	}
	sort.Strings(sect)
	sort.Strings(onlyQ)
	sort.Strings(onlyC)

	base := strings.Join(sect, " ")
	q := joinTokens(base, onlyQ)
	c := joinTokens(base, onlyC)

	best := Ratio(q, c)
	if base != "" {
		best = max(best, Ratio(base, q), Ratio(base, c))
	}
	return clamp(best)
}

// Ratio returns the normalized Indel similarity of a and b in [0, 1]:
// (len(a)+len(b)-d) / (len(a)+len(b)), where d counts the insertions and
// deletions turning a into b. Lengths are in runes. Two empty strings are
// identical (1.0).
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	// d = total - 2*lcs, so the ratio reduces to 2*lcs/total.
	return clamp(float64(2*lcsLen(ra, rb)) / float64(total))
}

// lcsLen returns the length of the longest common subsequence using two rows.
func lcsLen(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return 0
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// tokenize lower-cases s and returns its set of whitespace-delimited tokens.
func tokenize(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// HasTokens reports whether s contains at least one token.
func HasTokens(s string) bool {
	return len(strings.Fields(s)) > 0
}

func joinTokens(base string, rest []string) string {
	tail := strings.Join(rest, " ")
	switch {
	case base == "":
		return tail
	case tail == "":
		return base
	default:
		return base + " " + tail
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
