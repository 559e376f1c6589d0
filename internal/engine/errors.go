package engine

import (
	"errors"
	"strings"
)

// Expected outcomes are modeled as sentinel errors, not panics or generic
// failures, so every caller is forced to handle each case.
var (
	// ErrConflict means a concurrent caller won the race for a
	// transition, or the occurrence was not in a valid source state, or
	// the daily claim limit was hit. Retryable from the user's side.
	ErrConflict = errors.New("conflict")

	// ErrWindowExpired means an undo was attempted outside its time
	// bound. Terminal.
	ErrWindowExpired = errors.New("undo window expired")

	// ErrCycle rejects a dependency edge that would close a cycle.
	ErrCycle = errors.New("dependency cycle")

	// ErrNotFound means the referenced occurrence, member, or snapshot
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotAdmin guards admin-only operations (skip, manual assignment,
	// conversion).
	ErrNotAdmin = errors.New("admin privileges required")
)

// asConflict maps driver-level lock contention to ErrConflict: a caller
// that cannot get the row wins nothing and should retry, not see a 500.
func asConflict(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY") {
		return ErrConflict
	}
	return err
}
