package vawk

import "time"

// Version is stamped on every session meta record.
const Version = "0.2.0"

// Session is the immutable metadata record that opens every ledger.
type Session struct {
	ID        string
	CreatedAt time.Time // UTC
	Cwd       string
	Title     string // optional
	Version   string
}

// Turn is one message committed to a session ledger. Turns are never
// modified once appended; Msg is stored exactly as sent or received.
type Turn struct {
	Idx       int
	Role      Role
	Msg       string
	Model     string // assistant turns only
	Timestamp time.Time
}

// Conversation is a session together with its turns in ledger order and the
// index the next appended turn must use.
type Conversation struct {
	Session Session
	Turns   []Turn
	NextIdx int
}

// NewConversation returns the state of a session that has no turns yet.
func NewConversation(s Session) Conversation {
	return Conversation{Session: s, NextIdx: 1}
}

// Ledger is the durable, append-only store of chat sessions.
//
// LoadSession returns ErrNotFound when no store exists for the id and
// ErrCorrupt when the first record is not a meta record or a record kind is
// unknown. AppendTurn does not check index monotonicity, that is the caller's
// job, but it never reorders or coalesces records. A nil error from
// AppendTurn means the record is flushed and visible to a later LoadSession,
// including one made by another process.
type Ledger interface {
	CreateSession(title string) (Session, error)
	LoadSession(id string) (Conversation, error)
	AppendTurn(sessionID string, turn Turn) error
}
