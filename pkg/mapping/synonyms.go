package mapping

import (
	"fmt"
	"os"

	"github.com/jinzhu/inflection"
	"gopkg.in/yaml.v3"
)

// SynonymTable maps canonical keys to the raw variants that should resolve to
// them. Tables are built once at startup and never mutated afterwards.
type SynonymTable struct {
	canonical map[string]string // normalized variant -> canonical key
}

// defaultSynonyms covers the size, color, and material families most commonly
// seen in apparel import files.
var defaultSynonyms = map[string][]string{
	// Sizes
	"extra small": {"xs", "x-small"},
	"small":       {"s", "sm"},
	"medium":      {"m", "med"},
	"large":       {"l", "lg"},
	"extra large": {"xl", "x-large"},
	"2x large":    {"xxl", "2xl"},
	"3x large":    {"xxxl", "3xl"},
	"one size":    {"os", "one size fits all", "osfa"},

	// Colors
	"black":     {"jet black", "charcoal black"},
	"white":     {"off white", "off-white", "ivory"},
	"gray":      {"grey", "heather gray", "heather grey"},
	"navy":      {"navy blue", "dark blue"},
	"beige":     {"tan", "sand", "khaki"},
	"burgundy":  {"wine", "maroon", "oxblood"},
	"olive":     {"olive green", "army green"},
	"turquoise": {"teal", "aqua"},

	// Materials
	"cotton":             {"100% cotton", "cotton fiber"},
	"organic cotton":     {"organic cotton fiber", "gots cotton"},
	"polyester":          {"poly", "pes"},
	"recycled polyester": {"rpet", "recycled poly", "r-pet"},
	"wool":               {"virgin wool", "new wool"},
	"merino wool":        {"merino"},
	"elastane":           {"spandex", "lycra"},
	"viscose":            {"rayon"},
	"denim":              {"denim fabric"},
	"linen":              {"flax", "flax linen"},
}

// NewSynonymTable builds the default table, optionally merged with extra
// entries. Keys and variants are normalized on the way in so lookups are a
// single map access.
func NewSynonymTable(extra map[string][]string) *SynonymTable {
	t := &SynonymTable{canonical: make(map[string]string)}
	t.merge(defaultSynonyms)
	t.merge(extra)
	return t
}

func (t *SynonymTable) merge(entries map[string][]string) {
	for key, variants := range entries {
		canonical := Normalize(key)
		if canonical == "" {
			continue
		}
		t.canonical[canonical] = canonical
		for _, v := range variants {
			if n := Normalize(v); n != "" {
				t.canonical[n] = canonical
			}
		}
	}
}

// Resolve normalizes the input and checks membership as either a canonical
// key or a listed synonym. A plural form is folded to its singular before the
// lookup ("dresses" matches a "dress" entry). Returns the canonical key and
// true on a match.
func (t *SynonymTable) Resolve(value string) (string, bool) {
	n := Normalize(value)
	if n == "" {
		return "", false
	}
	if canonical, ok := t.canonical[n]; ok {
		return canonical, true
	}
	if singular := inflection.Singular(n); singular != n {
		if canonical, ok := t.canonical[singular]; ok {
			return canonical, true
		}
	}
	return "", false
}

// LoadSynonymOverrides reads extra synonym entries from a YAML file of the
// form `canonical: [variant, variant]`. Returns nil when path is empty.
func LoadSynonymOverrides(path string) (map[string][]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read synonym overrides: %w", err)
	}

	var overrides map[string][]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse synonym overrides: %w", err)
	}
	return overrides, nil
}
