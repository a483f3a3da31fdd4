package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into domain errors:
//   - ErrNotFound: resource, record or component does not exist
//   - ErrConflict: an id or address is already taken
//   - ErrAlreadyUsed: a single-use reservation was consumed
//   - ErrInvalidState: entity in the wrong state for the operation (e.g. already recalled)
//   - ErrUnavailable: backing service unreachable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
