// Package stub provides a deterministic offline vawk.Model.
package stub

import (
	"context"

	"github.com/fwojciec/vawk"
)

// Label identifies stub replies on assistant turns.
const Label = "stub-chat"

// Interface compliance check.
var _ vawk.Model = (*Model)(nil)

// Model answers without any network access. Structured requests and
// correction requests get a fixed, contract-complete log summarizer reply;
// anything else is echoed back with a "[stub] " prefix.
type Model struct {
	templates vawk.Templates
}

// Option configures a Model.
type Option func(*Model)

// WithTemplates sets the templates used to recognize structured requests.
// It must match the orchestrator's templates.
func WithTemplates(t vawk.Templates) Option {
	return func(m *Model) {
		m.templates = t
	}
}

// New creates a stub Model.
func New(opts ...Option) *Model {
	m := &Model{templates: vawk.DefaultTemplates()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Label returns "stub-chat".
func (m *Model) Label() string { return Label }

// Call replies to the last user message.
func (m *Model) Call(ctx context.Context, messages []vawk.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	last := lastUser(messages)
	if last == m.templates.Correction {
		return StructuredReply, nil
	}
	if _, ok := m.templates.Unwrap(last); ok {
		return StructuredReply, nil
	}
	return "[stub] " + last, nil
}

func lastUser(messages []vawk.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if u, ok := messages[i].(vawk.UserMessage); ok {
			return u.Text
		}
	}
	return ""
}

// StructuredReply is the canned reply for structured requests.
const StructuredReply = `PLAN:
- Parse space-delimited log lines; ignore blanks and comment lines starting with #.
- Fields: $1 timestamp, $2 level (INFO/WARN/ERROR), $3 user id, $4+ message (unused for counts).
- Track total line count and per-level counts.
- When by_user is set (-v by_user=1), also track totals per user and per-level per user while preserving first-seen order.
- Output plain text lines: total_lines, INFO, WARN, ERROR, then optional user lines with key=value pairs.

CODE:
` + "```awk" + `
# VAWK: log_summary_by_level
# Purpose: Summarize log lines by level (INFO/WARN/ERROR).
# Intent: Provide a reusable pattern for quick log health checks without external commands.
# Input: TIMESTAMP LEVEL USER MESSAGE... (space-delimited), one log entry per line.
# Output: key=value lines for total_lines and per-level counts; optional per-user breakdown when by_user=1.
BEGIN {
    FS = " ";
    lineCount = 0;
    userIndex = 0;
}

/^[[:space:]]*#/ { next }
NF == 0 { next }
{
    lineCount++;
    level = $2;
    userId = $3;
    levelCounts[level]++;

    if (by_user) {
        if (!(userId in userSeen)) {
            userSeen[userId] = 1;
            userOrder[++userIndex] = userId;
        }
        userTotals[userId]++;
        userLevelCounts[userId, level]++;
    }
}

END {
    printf "total_lines=%d\n", lineCount;
    printf "INFO=%d\n", levelCounts["INFO"] + 0;
    printf "WARN=%d\n", levelCounts["WARN"] + 0;
    printf "ERROR=%d\n", levelCounts["ERROR"] + 0;

    if (by_user) {
        for (i = 1; i <= userIndex; i++) {
            uid = userOrder[i];
            printf "user=%s total=%d INFO=%d WARN=%d ERROR=%d\n", uid, userTotals[uid] + 0, userLevelCounts[uid, "INFO"] + 0, userLevelCounts[uid, "WARN"] + 0, userLevelCounts[uid, "ERROR"] + 0;
        }
    }
}
` + "```" + `

TESTS:
- Run against tests/input_basic.log expecting tests/expect_basic.txt.
- Run with -v by_user=1 against tests/input_basic.log expecting tests/expect_basic_by_user.txt.

NOTES:
- Assumes fields are whitespace-separated with level at $2 and user id at $3.
- Keeps per-user output order as first seen in the log.
- Ignores comment lines; treat blank lines as no-op.
`
