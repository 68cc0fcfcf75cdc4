// Package structs holds the wire-level and in-memory types shared across
// the activity manager: records, intents, and the transport error codes.
package structs

import "errors"

// StatusCode mirrors the integer result codes returned across the
// transport by the inbound service methods (spec.md §7).
type StatusCode int32

const (
	StatusOK                StatusCode = 0
	StatusBadValue          StatusCode = -1
	StatusInvalidOperation  StatusCode = -2
	StatusFailedTransaction StatusCode = -3
	StatusDeadObject        StatusCode = -4
)

func (s StatusCode) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusBadValue:
		return "BAD_VALUE"
	case StatusInvalidOperation:
		return "INVALID_OPERATION"
	case StatusFailedTransaction:
		return "FAILED_TRANSACTION"
	case StatusDeadObject:
		return "DEAD_OBJECT"
	default:
		return "UNKNOWN"
	}
}

// Sentinel errors used internally; callers at the transport boundary
// translate these into a StatusCode via StatusFor.
var (
	ErrBadValue          = errors.New("am: unresolvable target or action")
	ErrInvalidOperation  = errors.New("am: operation refused")
	ErrFailedTransaction = errors.New("am: transport failure")
	ErrDeadObject        = errors.New("am: target no longer exists")
)

// StatusFor maps a Go error produced by the core into the wire status
// code a transport-facing method should return. Unknown errors map to
// FAILED_TRANSACTION rather than panicking the caller.
func StatusFor(err error) StatusCode {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrBadValue):
		return StatusBadValue
	case errors.Is(err, ErrInvalidOperation):
		return StatusInvalidOperation
	case errors.Is(err, ErrDeadObject):
		return StatusDeadObject
	default:
		return StatusFailedTransaction
	}
}
