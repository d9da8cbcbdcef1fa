package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercases", input: "Organic Cotton", want: "organic cotton"},
		{name: "trims", input: "  Wool  ", want: "wool"},
		{name: "collapses whitespace", input: "recycled \t polyester", want: "recycled polyester"},
		{name: "strips punctuation", input: "100% Cotton!", want: "100 cotton"},
		{name: "keeps hyphens", input: "T-Shirt", want: "t-shirt"},
		{name: "keeps digits", input: "2XL", want: "2xl"},
		{name: "empty", input: "", want: ""},
		{name: "whitespace only", input: "   \t ", want: ""},
		{name: "punctuation only", input: "!!!", want: ""},
		{name: "unicode letters survive", input: "Mérino Wool", want: "mérino wool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Organic  Cotton ", "100% Wool", "T-Shirt (Blue)", "", "  x  "}
	for _, s := range inputs {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once), "normalize must be idempotent for %q", s)
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "organic cotton", Fold(" Organic Cotton "))
	// Fold keeps punctuation, unlike Normalize
	assert.Equal(t, "100% cotton", Fold("100% Cotton"))
	assert.Equal(t, "", Fold("   "))
}
