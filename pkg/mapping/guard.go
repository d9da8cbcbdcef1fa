package mapping

import (
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
)

// DefaultMaxValueLength caps raw values eligible for auto-creation.
const DefaultMaxValueLength = 255

// SafetyCheckResult explains why a value was rejected. Nil means the value is
// safe.
type SafetyCheckResult struct {
	Reason      string // "empty", "too_long", "control_chars", "sqli"
	Fingerprint string // libinjection fingerprint when Reason is "sqli"
}

// CheckValueSafety validates a raw value before it is allowed to create a
// catalog entity. Values resembling injection payloads, over-length values,
// and values with control characters are rejected. Rejection is silent at
// this layer; callers surface it as a validation error.
//
// Returns nil if the value is safe, or a SafetyCheckResult describing the
// rejection.
func CheckValueSafety(value string, maxLen int) *SafetyCheckResult {
	if maxLen <= 0 {
		maxLen = DefaultMaxValueLength
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return &SafetyCheckResult{Reason: "empty"}
	}
	if len(trimmed) > maxLen {
		return &SafetyCheckResult{Reason: "too_long"}
	}
	for _, r := range trimmed {
		if r < 0x20 && r != '\t' {
			return &SafetyCheckResult{Reason: "control_chars"}
		}
	}

	if isSQLi, fingerprint := libinjection.IsSQLi(trimmed); isSQLi {
		return &SafetyCheckResult{Reason: "sqli", Fingerprint: string(fingerprint)}
	}

	return nil
}
