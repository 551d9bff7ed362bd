package types

import "errors"

// Error taxonomy. Callers match with errors.Is; wrap sites add context with
// fmt.Errorf("...: %w", err).
var (
	// ErrNotFound covers unknown channel, message, or parent references.
	ErrNotFound = errors.New("not found")
	// ErrConflict covers edit/delete races. Vacuous interactions against a
	// deleted message are treated as no-op success, not ErrConflict.
	ErrConflict = errors.New("conflict")
	// ErrTimeout covers sends and loads that exceeded their bound.
	ErrTimeout = errors.New("timeout")
	// ErrValidation covers rejects raised before any state mutation.
	ErrValidation = errors.New("validation")
)
