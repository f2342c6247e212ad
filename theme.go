package vawk

// Theme maps output roles to ANSI color indices (0-15), so rendered replies
// follow the user's terminal palette. A negative index means no color.
type Theme struct {
	Section    int // PLAN/CODE/TESTS/NOTES labels
	Label      int // "# VAWK:" style header tags inside code
	Error      int // diagnostic headline
	Suggestion int // diagnostic suggestions
	Notice     int // "[vawk]" status lines
	Muted      int // code gutter, fence language, link targets
	Accent     int // markdown headings
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		Section:    5,
		Label:      6,
		Error:      1,
		Suggestion: 3,
		Notice:     4,
		Muted:      8,
		Accent:     5,
	}
}
