package identity

import (
	"sort"
	"strings"
	"unicode"
)

// TokenSimilarity scores how alike two names are on a 0-100 scale.
// Both names are lowercased, stripped of punctuation, tokenized and
// token-sorted before comparison, so "DOE JOHN" and "John Doe" score 100
// regardless of word order. The score is a Levenshtein ratio over the
// token-sorted strings.
func TokenSimilarity(a, b string) int {
	na := tokenSortNormalize(a)
	nb := tokenSortNormalize(b)

	if na == "" && nb == "" {
		return 100
	}
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 100
	}

	dist := levenshtein(na, nb)
	maxLen := len([]rune(na))
	if l := len([]rune(nb)); l > maxLen {
		maxLen = l
	}

	// Round to nearest integer on the 0-100 scale
	return int((float64(maxLen-dist)/float64(maxLen))*100 + 0.5)
}

// tokenSortNormalize lowercases, replaces non-alphanumeric runes with
// spaces, and joins the sorted tokens with single spaces.
func tokenSortNormalize(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteRune(' ')
		}
	}

	tokens := strings.Fields(sb.String())
	if len(tokens) == 0 {
		return ""
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// levenshtein computes the edit distance between two strings using the
// two-row dynamic programming formulation.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}

			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
