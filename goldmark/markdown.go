// Package goldmark renders assistant replies to ANSI-styled terminal output
// using goldmark for parsing and lipgloss for styling.
package goldmark

import (
	"strings"

	"github.com/fwojciec/vawk"
)

const defaultWidth = 80

// Render parses markdown source and returns ANSI-styled terminal output.
// Paragraphs and list items are word-wrapped to width. Code blocks keep
// their lines as written.
func Render(source string, width int, theme vawk.Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = defaultWidth
	}
	return newRenderer(theme).markdown([]byte(source), width)
}

// RenderReply renders a structured reply. Section header lines are drawn as
// labels and the text between them is rendered as markdown, so a CODE
// section keeps its fence and header tags are highlighted.
func RenderReply(reply string, width int, theme vawk.Theme) string {
	if reply == "" {
		return ""
	}
	if width <= 0 {
		width = defaultWidth
	}
	r := newRenderer(theme)

	var (
		out  []string
		body []string
	)
	flush := func() {
		text := strings.TrimSpace(strings.Join(body, "\n"))
		body = body[:0]
		if text != "" {
			out = append(out, r.markdown([]byte(text), width))
		}
	}
	for _, line := range strings.Split(strings.ReplaceAll(reply, "\r\n", "\n"), "\n") {
		if sec, ok := vawk.SectionHeader(line); ok {
			flush()
			out = append(out, r.section.Render(string(sec)+":"))
			continue
		}
		body = append(body, line)
	}
	flush()
	return strings.Join(out, "\n")
}
