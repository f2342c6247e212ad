package vawk

import "context"

// Model answers a fully assembled prompt with the reply text.
//
// Messages arrive in their final order: leading system messages, replayed
// history oldest-first, then the new user message. Implementations must not
// reorder them. Label identifies the backend on persisted assistant turns.
type Model interface {
	Call(ctx context.Context, messages []Message) (string, error)
	Label() string
}
