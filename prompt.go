package vawk

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// TaskPlaceholder marks where the user's text goes in Templates.Structured.
const TaskPlaceholder = "{{task}}"

// Templates holds the fixed instructions sent on structured turns.
type Templates struct {
	// Structured wraps a user request; it must contain TaskPlaceholder.
	Structured string
	// Correction is sent verbatim when a structured reply fails validation.
	Correction string
}

// DefaultTemplates returns the built-in structured and correction prompts.
func DefaultTemplates() Templates {
	return Templates{
		Structured: "Task: " + TaskPlaceholder + `

Please respond in this exact format:
PLAN:
- steps

CODE:
` + "```awk" + `
# VAWK: <short_id>
# Purpose: <what this script does>
# Intent: <why it was built / how it should be used in the future>
# Input: <input assumptions>
# Output: <output description>
...
` + "```" + `

TESTS:
- test descriptions

NOTES:
- additional notes
`,
		Correction: "Please rewrite your last answer strictly in the required format: " +
			"PLAN:, CODE: (with AWK header and ```awk fences), TESTS:, NOTES:. " +
			"Do not add any other sections.",
	}
}

// Wrap substitutes text into the structured template.
func (t Templates) Wrap(text string) string {
	return strings.ReplaceAll(t.Structured, TaskPlaceholder, text)
}

// Unwrap reports whether msg was produced by Wrap and returns the task text.
func (t Templates) Unwrap(msg string) (string, bool) {
	prefix, suffix, ok := strings.Cut(t.Structured, TaskPlaceholder)
	if !ok || len(msg) < len(prefix)+len(suffix) {
		return "", false
	}
	if !strings.HasPrefix(msg, prefix) || !strings.HasSuffix(msg, suffix) {
		return "", false
	}
	return msg[len(prefix) : len(msg)-len(suffix)], true
}

// DefaultSystemPrompt is used when no system prompt file is configured.
const DefaultSystemPrompt = `You are VOX, an AWK-only coding assistant. Follow POSIX AWK only (no gawk extensions). Always respond with four sections in this exact order:

PLAN:
<step-by-step plan>

CODE:
` + "```awk" + `
# AWK code here
` + "```" + `

TESTS:
- tests to run

NOTES:
- assumptions/limits

Never skip PLAN. Keep CODE inside ` + "```awk" + ` fences. Do not use external commands or non-AWK code.`

// ProjectNotesSeparator joins agent notes and project notes in Prompts.Project.
const ProjectNotesSeparator = "\n\n---\n\nAdditional project notes:\n\n"

// Prompts are the layered system-level instructions. Empty layers are
// omitted from assembled prompts.
type Prompts struct {
	System    string
	Developer string
	Project   string
}

// ContextSource supplies reference material for a query. An empty string
// means nothing relevant was found.
type ContextSource interface {
	Context(ctx context.Context, query string) (string, error)
}

// DefaultMaxHistory is the number of prior turns replayed to the model.
const DefaultMaxHistory = 20

// PromptBuilder assembles the message list for a model call.
type PromptBuilder struct {
	prompts    Prompts
	source     ContextSource
	maxHistory int
	logger     *zap.Logger
}

// PromptOption configures a PromptBuilder.
type PromptOption func(*PromptBuilder)

// WithContextSource sets the retriever consulted before each call.
func WithContextSource(src ContextSource) PromptOption {
	return func(b *PromptBuilder) {
		b.source = src
	}
}

// WithMaxHistory overrides the number of replayed turns. Values below zero
// are treated as zero.
func WithMaxHistory(n int) PromptOption {
	return func(b *PromptBuilder) {
		b.maxHistory = max(n, 0)
	}
}

// WithPromptLogger sets the logger used to report retrieval degradation.
func WithPromptLogger(l *zap.Logger) PromptOption {
	return func(b *PromptBuilder) {
		b.logger = l
	}
}

// NewPromptBuilder creates a builder for the given prompt layers.
func NewPromptBuilder(prompts Prompts, opts ...PromptOption) *PromptBuilder {
	b := &PromptBuilder{
		prompts:    prompts,
		maxHistory: DefaultMaxHistory,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns system layers, retrieved context for query, the most recent
// history turns oldest-first, and userMsg last. Assistant turns at the start
// of the history window are dropped. A failing context source is
// logged and skipped.
func (b *PromptBuilder) Build(ctx context.Context, history []Turn, query, userMsg string) []Message {
	var msgs []Message
	for _, layer := range []string{b.prompts.System, b.prompts.Developer, b.prompts.Project} {
		if strings.TrimSpace(layer) != "" {
			msgs = append(msgs, SystemMessage{Text: layer})
		}
	}
	if rag := b.context(ctx, query); rag != "" {
		msgs = append(msgs, SystemMessage{Text: rag})
	}
	start := max(0, len(history)-b.maxHistory)
	// The window must open on a user turn.
	for start < len(history) && history[start].Role == RoleAssistant {
		start++
	}
	for _, t := range history[start:] {
		switch t.Role {
		case RoleUser:
			msgs = append(msgs, UserMessage{Text: t.Msg})
		case RoleAssistant:
			msgs = append(msgs, AssistantMessage{Text: t.Msg})
		}
	}
	return append(msgs, UserMessage{Text: userMsg})
}

func (b *PromptBuilder) context(ctx context.Context, query string) string {
	if b.source == nil || strings.TrimSpace(query) == "" {
		return ""
	}
	text, err := b.source.Context(ctx, query)
	if err != nil {
		b.logger.Warn("reference context unavailable", zap.Error(err))
		return ""
	}
	return text
}
