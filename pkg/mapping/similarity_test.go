package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"cotton", "", 6},
		{"", "wool", 4},
		{"cotton", "cotton", 0},
		{"cotton", "catton", 1},
		{"kitten", "sitting", 3},
		{"wool", "cool", 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b), "Levenshtein(%q, %q)", tt.a, tt.b)
	}
}

func TestSimilarityIdentity(t *testing.T) {
	for _, s := range []string{"", "cotton", "Organic Cotton", "2XL", "mérino"} {
		assert.Equal(t, 100, Similarity(s, s), "similarity(s, s) must be 100 for %q", s)
	}
}

func TestSimilaritySymmetry(t *testing.T) {
	pairs := [][2]string{
		{"cotton", "catton"},
		{"organic cotton", "organic linen"},
		{"wool", ""},
		{"navy", "navy blue"},
	}
	for _, p := range pairs {
		assert.Equal(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]),
			"similarity must be symmetric for %q/%q", p[0], p[1])
	}
}

func TestSimilarityScores(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{name: "both empty", a: "", b: "", want: 100},
		{name: "case insensitive", a: "Cotton", b: "cotton", want: 100},
		{name: "one edit in six", a: "cotton", b: "catton", want: 83},
		{name: "disjoint", a: "wool", b: "silk", want: 0},
		{name: "empty vs non-empty", a: "", b: "wool", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Similarity(tt.a, tt.b))
		})
	}
}
