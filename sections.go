package vawk

import "strings"

// Section names a block of a structured reply.
type Section string

const (
	SectionPlan  Section = "PLAN"
	SectionCode  Section = "CODE"
	SectionTests Section = "TESTS"
	SectionNotes Section = "NOTES"
)

// Sections holds the parsed blocks of a structured reply. Missing blocks are
// empty strings. Code has its surrounding fence removed.
type Sections struct {
	Plan  string
	Code  string
	Tests string
	Notes string
}

// Parse splits raw model text into sections. A header is a line that equals
// one of "PLAN:", "CODE:", "TESTS:" or "NOTES:" after trimming, compared
// case-insensitively. Text before the first header is discarded. When a
// header repeats, its blocks are joined in reply order.
func Parse(raw string) Sections {
	s, _ := parse(raw)
	return s
}

// parse returns the sections and the number of header lines seen.
func parse(raw string) (Sections, int) {
	var (
		blocks  = make(map[Section][]string, 4)
		current Section
		headers int
	)
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if sec, ok := SectionHeader(line); ok {
			current = sec
			headers++
			continue
		}
		if current == "" {
			continue
		}
		blocks[current] = append(blocks[current], line)
	}
	var s Sections
	for sec, lines := range blocks {
		s.set(sec, strings.TrimSpace(strings.Join(lines, "\n")))
	}
	s.Code = StripCodeFences(s.Code)
	return s, headers
}

// SectionHeader reports whether line is a section header and which one.
func SectionHeader(line string) (Section, bool) {
	t := strings.TrimSpace(line)
	for _, sec := range []Section{SectionPlan, SectionCode, SectionTests, SectionNotes} {
		if strings.EqualFold(t, string(sec)+":") {
			return sec, true
		}
	}
	return "", false
}

func (s *Sections) set(sec Section, text string) {
	switch sec {
	case SectionPlan:
		s.Plan = text
	case SectionCode:
		s.Code = text
	case SectionTests:
		s.Tests = text
	case SectionNotes:
		s.Notes = text
	}
}

// Get returns the text of the named section.
func (s Sections) Get(sec Section) string {
	switch sec {
	case SectionPlan:
		return s.Plan
	case SectionCode:
		return s.Code
	case SectionTests:
		return s.Tests
	case SectionNotes:
		return s.Notes
	default:
		return ""
	}
}

// StripCodeFences removes a surrounding ``` fence, including any language
// tag on the opening line. Text without an opening fence on its first line
// and a closing fence after it is returned trimmed but otherwise unchanged.
func StripCodeFences(code string) string {
	t := strings.TrimSpace(code)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	first := strings.IndexByte(t, '\n')
	last := strings.LastIndex(t, "```")
	if first < 0 || last <= first {
		return t
	}
	return strings.TrimSpace(t[first+1 : last])
}

// ParseTestsList turns a TESTS block into one description per entry,
// dropping blank lines and leading "-" bullets.
func ParseTestsList(tests string) []string {
	var out []string
	for _, line := range strings.Split(tests, "\n") {
		l := strings.TrimSpace(line)
		l = strings.TrimSpace(strings.TrimPrefix(l, "-"))
		if l == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}
