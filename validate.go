package vawk

import (
	"fmt"
	"strings"
)

// FailureKind classifies why a reply failed the structured contract.
type FailureKind string

const (
	FailureMissingSection FailureKind = "missing-section"
	FailureHeaderMissing  FailureKind = "header-missing"
	FailureUnparseable    FailureKind = "unparseable"
)

// ValidationError reports a reply that does not satisfy the structured
// contract. It unwraps to ErrValidation.
type ValidationError struct {
	Kind    FailureKind
	Section Section // set for FailureMissingSection
	Reason  string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// HeaderLabels are the comment tags every CODE section must open with.
var HeaderLabels = []string{"# VAWK:", "# Purpose:", "# Intent:", "# Input:", "# Output:"}

// headerWindow is the number of non-blank code lines searched for labels.
const headerWindow = 10

// RequireAllSections checks, in order, that PLAN and CODE are non-blank, that
// CODE carries every header label, and that TESTS and NOTES are non-blank.
// The first failure is returned as a *ValidationError.
func RequireAllSections(s Sections) error {
	if err := requireAll(s); err != nil {
		return err
	}
	return nil
}

func requireAll(s Sections) *ValidationError {
	if strings.TrimSpace(s.Plan) == "" {
		return missingSection(SectionPlan)
	}
	if strings.TrimSpace(s.Code) == "" {
		return missingSection(SectionCode)
	}
	if !HasHeader(s.Code) {
		return &ValidationError{
			Kind:   FailureHeaderMissing,
			Reason: "header missing required labels (VAWK/Purpose/Intent/Input/Output)",
		}
	}
	if strings.TrimSpace(s.Tests) == "" {
		return missingSection(SectionTests)
	}
	if strings.TrimSpace(s.Notes) == "" {
		return missingSection(SectionNotes)
	}
	return nil
}

func missingSection(sec Section) *ValidationError {
	return &ValidationError{
		Kind:    FailureMissingSection,
		Section: sec,
		Reason:  fmt.Sprintf("missing %s section", sec),
	}
}

// HasHeader reports whether every label in HeaderLabels starts one of the
// first ten non-blank lines of code. A single leading shebang line is not
// counted. Fences are stripped first.
func HasHeader(code string) bool {
	lines := strings.Split(strings.ReplaceAll(StripCodeFences(code), "\r\n", "\n"), "\n")
	found := make(map[string]bool, len(HeaderLabels))
	checked := 0
	first := true
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		if first {
			first = false
			if strings.HasPrefix(t, "#!") {
				continue
			}
		}
		for _, label := range HeaderLabels {
			if strings.HasPrefix(t, label) {
				found[label] = true
			}
		}
		checked++
		if checked >= headerWindow {
			break
		}
	}
	return len(found) == len(HeaderLabels)
}

// Verdict is the outcome of validating one reply.
type Verdict struct {
	Sections Sections
	Err      *ValidationError
}

// OK reports whether the reply satisfied the contract.
func (v Verdict) OK() bool { return v.Err == nil }

// Validate parses raw and checks it against the structured contract. A reply
// without a single section header is reported as unparseable rather than as
// a missing PLAN.
func Validate(raw string) Verdict {
	s, headers := parse(raw)
	if headers == 0 {
		return Verdict{Sections: s, Err: &ValidationError{
			Kind:   FailureUnparseable,
			Reason: "no PLAN/CODE/TESTS/NOTES section headers found",
		}}
	}
	if err := requireAll(s); err != nil {
		return Verdict{Sections: s, Err: err}
	}
	return Verdict{Sections: s}
}
