package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
	// ErrInvalidAmount flags a zero, negative, or otherwise unusable amount.
	ErrInvalidAmount = errors.New("invalid_amount")
	// ErrInvalidState flags an operation the student's current ledger state
	// does not admit (e.g. paying toward an already settled item).
	ErrInvalidState = errors.New("invalid_state")
	// ErrPlanRequired indicates an installment course intake without a plan selection.
	ErrPlanRequired = errors.New("plan_required")
	// ErrTerminalStatus indicates a transition attempted from an end-stage status.
	ErrTerminalStatus = errors.New("terminal_status")
)
