package vawk

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrNotFound indicates a session with no backing store, or a turn
	// missing from a session.
	ErrNotFound = errors.New("not found")

	// ErrCorrupt indicates a ledger that violates its record layout.
	ErrCorrupt = errors.New("corrupt session ledger")

	// ErrValidation indicates a reply failed the structured contract.
	ErrValidation = errors.New("validation error")

	// ErrPathSecurity indicates a path that would resolve outside its root.
	ErrPathSecurity = errors.New("unsafe path")

	// ErrExists indicates a promotion target that is already present.
	ErrExists = errors.New("already exists")

	// ErrStorage indicates a failure reading or writing the ledger.
	ErrStorage = errors.New("ledger storage error")
)
