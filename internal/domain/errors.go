package domain

import "errors"

// Error taxonomy of spec §7. Command-rejection errors carry no state
// mutation; persistence errors are distinguished by whether the worker
// should retry or the process should halt.
var (
	// ErrUnknownUser: command references a user with no balance row.
	// Command is dropped; no state change.
	ErrUnknownUser = errors.New("unknown user")

	// ErrInsufficientFunds: lock operation would make a balance negative.
	// Rejected before any state mutation.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrOrderNotFound: cancel targets a non-Open or missing order.
	ErrOrderNotFound = errors.New("order not found")

	// ErrPersistenceFatal: unrecoverable write failure. The process halts.
	ErrPersistenceFatal = errors.New("unrecoverable persistence failure")

	// ErrInvariantViolation: a B1/O1/O2/O3 breach. Indicates a bug; fatal.
	ErrInvariantViolation = errors.New("invariant violation")
)
