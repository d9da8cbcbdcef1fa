package mapping

import (
	"math"
	"strings"
)

// Levenshtein computes the edit distance between two strings. Insertion,
// deletion, and substitution each cost 1. Comparison is rune-wise, so
// multi-byte characters count as single edits.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	// Single-row DP
	prev := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr := make([]int, len(rb)+1)
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			ins := curr[j-1] + 1
			del := prev[j] + 1
			sub := prev[j-1] + cost
			curr[j] = min(ins, min(del, sub))
		}
		prev = curr
	}
	return prev[len(rb)]
}

// Similarity derives a 0-100 percentage from the Levenshtein distance between
// the lowercased forms of a and b. Two empty strings score 100. The function
// is symmetric and Similarity(s, s) is always 100.
func Similarity(a, b string) int {
	la := strings.ToLower(a)
	lb := strings.ToLower(b)

	maxLen := len([]rune(la))
	if n := len([]rune(lb)); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 100
	}

	dist := Levenshtein(la, lb)
	return int(math.Round(100 * float64(maxLen-dist) / float64(maxLen)))
}
