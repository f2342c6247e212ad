package vawk

import "strings"

// Intent is the classifier's verdict on a user turn.
type Intent int

const (
	// IntentMixed is the fallback when no marker matches. It is handled
	// like IntentCode downstream.
	IntentMixed Intent = iota
	IntentExplain
	IntentCode
)

// String returns the upper-case name of the intent.
func (i Intent) String() string {
	switch i {
	case IntentExplain:
		return "EXPLAIN"
	case IntentCode:
		return "CODE"
	default:
		return "MIXED"
	}
}

// Structured reports whether turns with this intent must satisfy the
// PLAN/CODE/TESTS/NOTES contract.
func (i Intent) Structured() bool {
	return i != IntentExplain
}

var codeMarkers = []string{
	"write awk",
	"awk script",
	"generate awk",
	"show awk code",
	"plan, code, tests, notes",
	"plan/code/tests/notes",
}

var explainMarkers = []string{
	"explain",
	"what does",
	"what is",
	"how does this work",
	"how does",
	"help me understand",
}

// Classify decides the intent of raw user text. Matching is
// case-insensitive and the first matching rule wins: blank input is mixed,
// code markers beat explain markers, anything else is mixed.
func Classify(text string) Intent {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	if trimmed == "" {
		return IntentMixed
	}
	if strings.HasPrefix(trimmed, "plan:") || strings.HasPrefix(trimmed, "code:") {
		return IntentCode
	}
	if containsAny(trimmed, codeMarkers) {
		return IntentCode
	}
	if containsAny(trimmed, explainMarkers) {
		return IntentExplain
	}
	return IntentMixed
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
