package mock

import "github.com/fwojciec/vawk"

// Ledger is a test double for vawk.Ledger.
// Set the function fields for the methods you need.
type Ledger struct {
	CreateSessionFn func(title string) (vawk.Session, error)
	LoadSessionFn   func(id string) (vawk.Conversation, error)
	AppendTurnFn    func(sessionID string, turn vawk.Turn) error
}

// CreateSession delegates to CreateSessionFn.
func (l *Ledger) CreateSession(title string) (vawk.Session, error) {
	return l.CreateSessionFn(title)
}

// LoadSession delegates to LoadSessionFn.
func (l *Ledger) LoadSession(id string) (vawk.Conversation, error) {
	return l.LoadSessionFn(id)
}

// AppendTurn delegates to AppendTurnFn.
func (l *Ledger) AppendTurn(sessionID string, turn vawk.Turn) error {
	return l.AppendTurnFn(sessionID, turn)
}

// Recorder returns an AppendTurnFn that collects appended turns into turns.
func Recorder(turns *[]vawk.Turn) func(string, vawk.Turn) error {
	return func(_ string, t vawk.Turn) error {
		*turns = append(*turns, t)
		return nil
	}
}
