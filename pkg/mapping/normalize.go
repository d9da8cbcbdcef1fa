// Package mapping implements the value-mapping engine: normalization,
// synonym resolution, Levenshtein similarity scoring, the TTL mapping cache,
// and the input-safety guard. Everything here is storage-free; the resolution
// ladder that ties these pieces to the catalog lives in pkg/services.
package mapping

import (
	"strings"
	"unicode"
)

// Normalize lowercases, trims, collapses internal whitespace runs to a single
// space, and removes all characters except letters, digits, whitespace, and
// hyphens. It is pure and idempotent; blank input normalizes to "".
func Normalize(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Fold lowercases and trims a raw value. This is the key folding used by the
// mapping cache and the detector's dedup key: casing is folded for matching
// but punctuation is kept, unlike Normalize.
func Fold(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
