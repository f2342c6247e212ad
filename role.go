package vawk

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r may appear on a ledger turn.
// System messages are assembled per call and never persisted.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}
