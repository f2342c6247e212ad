// Package mock provides test doubles for vawk interfaces using function fields.
package mock

import (
	"context"
	"errors"

	"github.com/fwojciec/vawk"
)

var errNoReplies = errors.New("mock: no replies left")

// Interface compliance checks.
var (
	_ vawk.Model         = (*Model)(nil)
	_ vawk.Ledger        = (*Ledger)(nil)
	_ vawk.ContextSource = (*ContextSource)(nil)
)

// Model is a test double for vawk.Model.
// Set CallFn before calling Call. Label returns "mock" when LabelFn is nil.
type Model struct {
	CallFn  func(ctx context.Context, messages []vawk.Message) (string, error)
	LabelFn func() string
}

// Call delegates to CallFn.
func (m *Model) Call(ctx context.Context, messages []vawk.Message) (string, error) {
	return m.CallFn(ctx, messages)
}

// Label delegates to LabelFn.
func (m *Model) Label() string {
	if m.LabelFn == nil {
		return "mock"
	}
	return m.LabelFn()
}

// Replies returns a CallFn that answers with replies in order and records
// every prompt it receives into calls. It fails the call when the replies
// run out.
func Replies(calls *[][]vawk.Message, replies ...string) func(context.Context, []vawk.Message) (string, error) {
	return func(_ context.Context, messages []vawk.Message) (string, error) {
		if calls != nil {
			*calls = append(*calls, messages)
		}
		if len(replies) == 0 {
			return "", errNoReplies
		}
		r := replies[0]
		replies = replies[1:]
		return r, nil
	}
}

// ContextSource is a test double for vawk.ContextSource.
// Set ContextFn before calling Context.
type ContextSource struct {
	ContextFn func(ctx context.Context, query string) (string, error)
}

// Context delegates to ContextFn.
func (c *ContextSource) Context(ctx context.Context, query string) (string, error) {
	return c.ContextFn(ctx, query)
}
