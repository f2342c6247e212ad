// Package console drives chat sessions over line-oriented text streams:
// a single one-shot message or a read-eval-print loop.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/vawk"
	"github.com/fwojciec/vawk/goldmark"
	"github.com/mattn/go-isatty"
)

// QuitCommand ends an interactive session.
const QuitCommand = ":q"

// Prompt is printed before each interactive read.
const Prompt = "> "

// maxLine bounds a single interactive input line.
const maxLine = 1 << 20

// Handler opens sessions and handles user input. It is satisfied by
// *vawk.Orchestrator.
type Handler interface {
	Open(id, title string) (vawk.Conversation, bool, error)
	Handle(ctx context.Context, conv *vawk.Conversation, text string) (vawk.Outcome, error)
}

var _ Handler = (*vawk.Orchestrator)(nil)

// Console writes replies and diagnostics for a Handler.
type Console struct {
	handler Handler
	in      io.Reader
	out     io.Writer
	theme   vawk.Theme
	styled  bool
	width   int

	notice     lipgloss.Style
	errStyle   lipgloss.Style
	suggestion lipgloss.Style
}

// Option configures a Console.
type Option func(*Console)

// WithInput sets the interactive input stream. The default is os.Stdin.
func WithInput(r io.Reader) Option {
	return func(c *Console) {
		c.in = r
	}
}

// WithOutput sets the output stream. The default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(c *Console) {
		c.out = w
	}
}

// WithStyled turns ANSI rendering of replies and diagnostics on or off.
func WithStyled(styled bool) Option {
	return func(c *Console) {
		c.styled = styled
	}
}

// WithTheme sets the colors used when styled.
func WithTheme(t vawk.Theme) Option {
	return func(c *Console) {
		c.theme = t
	}
}

// WithWidth sets the wrap width for rendered replies.
func WithWidth(n int) Option {
	return func(c *Console) {
		c.width = n
	}
}

// New creates a Console. Output is plain unless WithStyled(true) is given.
func New(h Handler, opts ...Option) *Console {
	c := &Console{
		handler: h,
		in:      os.Stdin,
		out:     os.Stdout,
		theme:   vawk.DefaultTheme(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.notice = lipgloss.NewStyle().Foreground(color(c.theme.Notice))
	c.errStyle = lipgloss.NewStyle().Foreground(color(c.theme.Error)).Bold(true)
	c.suggestion = lipgloss.NewStyle().Foreground(color(c.theme.Suggestion))
	return c
}

func color(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// OneShot handles a single message and returns the process exit code: 1 when
// a structured request ended without a valid reply, 0 otherwise.
func (c *Console) OneShot(ctx context.Context, id, title, text string) (int, error) {
	conv, err := c.open(id, title)
	if err != nil {
		return 1, err
	}
	out, err := c.handler.Handle(ctx, &conv, text)
	if err != nil {
		return 1, err
	}
	if !out.OK() {
		c.printFailure(out.Failure, true)
		return 1, nil
	}
	c.printReply(out)
	return 0, nil
}

// Interactive reads one message per line until end of input or QuitCommand.
// Blank lines are skipped. A failed model call is reported and the loop
// continues. Ledger failures end the session.
func (c *Console) Interactive(ctx context.Context, id, title string) error {
	conv, err := c.open(id, title)
	if err != nil {
		return err
	}
	c.noticef("Type your message, or %s to quit.", QuitCommand)

	sc := bufio.NewScanner(c.in)
	sc.Buffer(make([]byte, 0, 4096), maxLine)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(c.out, Prompt)
		if !sc.Scan() {
			fmt.Fprintln(c.out)
			return sc.Err()
		}
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == QuitCommand {
			return nil
		}
		if trimmed == "" {
			continue
		}

		out, err := c.handler.Handle(ctx, &conv, line)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, vawk.ErrStorage), errors.Is(err, vawk.ErrCorrupt):
			return err
		default:
			c.errorf("%v", err)
			continue
		}
		if !out.OK() {
			c.printFailure(out.Failure, false)
			continue
		}
		c.printReply(out)
	}
}

func (c *Console) open(id, title string) (vawk.Conversation, error) {
	conv, resumed, err := c.handler.Open(id, title)
	if err != nil {
		return vawk.Conversation{}, err
	}
	if resumed {
		c.noticef("Resuming chat session: %s", conv.Session.ID)
	} else {
		c.noticef("New chat session: %s", conv.Session.ID)
	}
	return conv, nil
}

func (c *Console) printReply(out vawk.Outcome) {
	if !c.styled {
		fmt.Fprintln(c.out, out.Reply)
		return
	}
	if out.Intent.Structured() {
		fmt.Fprintln(c.out, goldmark.RenderReply(out.Reply, c.width, c.theme))
		return
	}
	fmt.Fprintln(c.out, goldmark.Render(out.Reply, c.width, c.theme))
}

// printFailure writes the diagnostic block for a structured request that
// stayed invalid. One-shot runs suggest prompt fixes; interactive sessions
// suggest rephrasing.
func (c *Console) printFailure(f *vawk.Failure, oneShot bool) {
	c.errorf("model did not produce a valid PLAN/CODE/TESTS/NOTES reply.")
	c.line(c.notice, "[vawk] Reason: "+f.Reason)
	c.line(c.notice, "[vawk] Suggestions:")
	suggestions := []string{
		"- Rephrase and ask again.",
		`- Ask for an explanation only ("Explain how to ... in awk") if code is not required.`,
	}
	if oneShot {
		suggestions = []string{
			`- Try rephrasing your request, e.g.: "Write awk script to ... with PLAN, CODE, TESTS, NOTES".`,
			"- If this keeps happening, check your prompts (vawk.system.md / vawk.developer.md) for formatting.",
		}
	}
	for _, s := range suggestions {
		c.line(c.suggestion, s)
	}
}

func (c *Console) noticef(format string, args ...any) {
	c.line(c.notice, "[vawk] "+fmt.Sprintf(format, args...))
}

func (c *Console) errorf(format string, args ...any) {
	c.line(c.errStyle, "[vawk] Error: "+fmt.Sprintf(format, args...))
}

func (c *Console) line(style lipgloss.Style, s string) {
	if c.styled {
		s = style.Render(s)
	}
	fmt.Fprintln(c.out, s)
}
