package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynonymTableResolve(t *testing.T) {
	table := NewSynonymTable(nil)

	tests := []struct {
		name      string
		input     string
		want      string
		wantFound bool
	}{
		{name: "synonym to canonical", input: "xs", want: "extra small", wantFound: true},
		{name: "xl resolves", input: "xl", want: "extra large", wantFound: true},
		{name: "canonical matches itself", input: "extra large", want: "extra large", wantFound: true},
		{name: "case folded", input: "XL", want: "extra large", wantFound: true},
		{name: "grey to gray", input: "Grey", want: "gray", wantFound: true},
		{name: "spandex to elastane", input: "Spandex", want: "elastane", wantFound: true},
		{name: "rpet to recycled polyester", input: "rPET", want: "recycled polyester", wantFound: true},
		{name: "unknown", input: "chartreuse", wantFound: false},
		{name: "blank", input: "  ", wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := table.Resolve(tt.input)
			assert.Equal(t, tt.wantFound, found)
			if tt.wantFound {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSynonymTablePluralFolding(t *testing.T) {
	table := NewSynonymTable(map[string][]string{
		"dress": {"gown"},
	})

	got, found := table.Resolve("Dresses")
	require.True(t, found)
	assert.Equal(t, "dress", got)
}

func TestSynonymTableExtraEntries(t *testing.T) {
	table := NewSynonymTable(map[string][]string{
		"bluesign": {"bluesign approved", "bluesign certified"},
	})

	got, found := table.Resolve("Bluesign Certified")
	require.True(t, found)
	assert.Equal(t, "bluesign", got)

	// Built-ins still resolve
	_, found = table.Resolve("xl")
	assert.True(t, found)
}

func TestLoadSynonymOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "synonyms.yaml")
	content := "fair trade:\n  - fairtrade\n  - fair-trade certified\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	overrides, err := LoadSynonymOverrides(path)
	require.NoError(t, err)
	require.Contains(t, overrides, "fair trade")

	table := NewSynonymTable(overrides)
	got, found := table.Resolve("FairTrade")
	require.True(t, found)
	assert.Equal(t, "fair trade", got)
}

func TestLoadSynonymOverridesEmptyPath(t *testing.T) {
	overrides, err := LoadSynonymOverrides("")
	require.NoError(t, err)
	assert.Nil(t, overrides)
}
