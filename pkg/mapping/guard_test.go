package mapping

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckValueSafety(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		wantReason string // "" means safe
	}{
		{name: "plain claim text", value: "GOTS Certified"},
		{name: "claim with digits", value: "100% Recycled"},
		{name: "hyphenated", value: "Cradle-to-Cradle"},
		{name: "empty", value: "", wantReason: "empty"},
		{name: "whitespace only", value: "   ", wantReason: "empty"},
		{name: "over length", value: strings.Repeat("a", 300), wantReason: "too_long"},
		{name: "control chars", value: "organic\x00cotton", wantReason: "control_chars"},
		{name: "sql injection", value: "'; DROP TABLE passport_eco_claims--", wantReason: "sqli"},
		{name: "union select", value: "' UNION SELECT * FROM users--", wantReason: "sqli"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckValueSafety(tt.value, DefaultMaxValueLength)
			if tt.wantReason == "" {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, tt.wantReason, result.Reason)
			if tt.wantReason == "sqli" {
				assert.NotEmpty(t, result.Fingerprint)
			}
		})
	}
}

func TestCheckValueSafetyCustomLength(t *testing.T) {
	result := CheckValueSafety("abcdef", 5)
	require.NotNil(t, result)
	assert.Equal(t, "too_long", result.Reason)

	assert.Nil(t, CheckValueSafety("abcde", 5))
}
