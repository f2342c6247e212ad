package goldmark

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/vawk"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type replyRenderer struct {
	bold    lipgloss.Style
	italic  lipgloss.Style
	heading lipgloss.Style
	section lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	link    lipgloss.Style
}

func newRenderer(theme vawk.Theme) *replyRenderer {
	return &replyRenderer{
		bold:    lipgloss.NewStyle().Bold(true),
		italic:  lipgloss.NewStyle().Italic(true),
		heading: lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)).Bold(true),
		section: lipgloss.NewStyle().Foreground(ansiColor(theme.Section)).Bold(true).Underline(true),
		label:   lipgloss.NewStyle().Foreground(ansiColor(theme.Label)),
		muted:   lipgloss.NewStyle().Foreground(ansiColor(theme.Muted)).Faint(true),
		link:    lipgloss.NewStyle().Underline(true),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

func (r *replyRenderer) markdown(source []byte, width int) string {
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))
	var buf bytes.Buffer
	r.blocks(doc, source, width, &buf)
	return strings.TrimRight(buf.String(), "\n")
}

func (r *replyRenderer) blocks(node ast.Node, source []byte, width int, buf *bytes.Buffer) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		r.block(c, source, width, buf)
		if c.NextSibling() != nil && c.Kind() != ast.KindHTMLBlock {
			buf.WriteString("\n")
		}
	}
}

func (r *replyRenderer) block(node ast.Node, source []byte, width int, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		buf.WriteString(lipgloss.NewStyle().Width(width).Render(r.inline(n, source)))
		buf.WriteString("\n")

	case *ast.Heading:
		buf.WriteString(lipgloss.NewStyle().Width(width).Render(r.heading.Render(r.inline(n, source))))
		buf.WriteString("\n")

	case *ast.FencedCodeBlock:
		if lang := string(n.Language(source)); lang != "" {
			buf.WriteString(r.muted.Render(lang))
			buf.WriteString("\n")
		}
		r.code(n.Lines(), source, buf)

	case *ast.CodeBlock:
		r.code(n.Lines(), source, buf)

	case *ast.List:
		r.list(n, source, width, buf, 0)

	case *ast.ThematicBreak:
		buf.WriteString(r.muted.Render(strings.Repeat("─", min(width, 3))))
		buf.WriteString("\n")

	case *ast.HTMLBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(source))
		}

	default:
		r.blocks(node, source, width, buf)
	}
}

// code writes code lines behind a gutter, highlighting header tags.
func (r *replyRenderer) code(lines *text.Segments, source []byte, buf *bytes.Buffer) {
	gutter := r.muted.Render("│") + " "
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(source)), "\n")
		buf.WriteString(gutter + r.codeLine(line))
		buf.WriteString("\n")
	}
}

func (r *replyRenderer) codeLine(line string) string {
	t := strings.TrimSpace(line)
	for _, label := range vawk.HeaderLabels {
		if strings.HasPrefix(t, label) {
			return r.label.Render(label) + strings.TrimPrefix(t, label)
		}
	}
	return line
}

func (r *replyRenderer) list(node *ast.List, source []byte, width int, buf *bytes.Buffer, depth int) {
	n := node.Start
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		marker := "- "
		if node.IsOrdered() {
			marker = fmt.Sprintf("%d. ", n)
			n++
		}
		indent := strings.Repeat("  ", depth)

		var content bytes.Buffer
		for ic := item.FirstChild(); ic != nil; ic = ic.NextSibling() {
			if sub, ok := ic.(*ast.List); ok {
				if content.Len() > 0 {
					r.listItem(buf, indent+marker, content.String(), width)
					content.Reset()
				}
				r.list(sub, source, width, buf, depth+1)
				marker = strings.Repeat(" ", len(marker))
				continue
			}
			switch in := ic.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				content.WriteString(r.inline(in, source))
			default:
				r.block(ic, source, width, &content)
			}
		}
		if content.Len() > 0 {
			r.listItem(buf, indent+marker, content.String(), width)
		}
	}
}

// listItem wraps content and indents continuation lines under the marker.
func (r *replyRenderer) listItem(buf *bytes.Buffer, prefix, content string, width int) {
	wrapped := lipgloss.NewStyle().Width(max(width-len(prefix), 10)).Render(content)
	pad := strings.Repeat(" ", len(prefix))
	for i, line := range strings.Split(wrapped, "\n") {
		if i == 0 {
			buf.WriteString(prefix + line + "\n")
			continue
		}
		buf.WriteString(pad + line + "\n")
	}
}

func (r *replyRenderer) inline(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		r.span(c, source, &buf)
	}
	return buf.String()
}

func (r *replyRenderer) span(node ast.Node, source []byte, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		switch {
		case n.HardLineBreak():
			buf.WriteByte('\n')
		case n.SoftLineBreak():
			buf.WriteByte(' ')
		}

	case *ast.String:
		buf.Write(n.Value)

	case *ast.Emphasis:
		if n.Level == 1 {
			buf.WriteString(r.italic.Render(r.inline(n, source)))
		} else {
			buf.WriteString(r.bold.Render(r.inline(n, source)))
		}

	case *ast.CodeSpan:
		buf.WriteString(r.bold.Render(r.inline(n, source)))

	case *ast.Link:
		buf.WriteString(r.link.Render(r.inline(n, source)))
		buf.WriteString(" " + r.muted.Render("("+string(n.Destination)+")"))

	case *ast.AutoLink:
		buf.WriteString(r.link.Render(string(n.URL(source))))

	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			buf.Write(seg.Value(source))
		}

	default:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			r.span(c, source, buf)
		}
	}
}
