package engine

import "errors"

// One sentinel per failure kind. Every kind except the no-op short circuit
// aborts the whole call with zero net state change; callers discriminate
// with errors.Is.
var (
	// ErrAccessDenied means the sender is neither the position owner nor an
	// approved delegate.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidPosition means the position does not exist or its liquidity
	// is not strictly positive.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrInvalidRange means newLower >= newUpper.
	ErrInvalidRange = errors.New("invalid range")

	// ErrContinuityViolation means mustContinueTrading was set and the
	// current tick lies outside the new range.
	ErrContinuityViolation = errors.New("continuity violation")

	// ErrCallbackRejected means a hook returned the wrong acknowledgement or
	// failed outright.
	ErrCallbackRejected = errors.New("callback rejected")

	// ErrReentrancy means the operation was re-entered while already in
	// progress on the same pool.
	ErrReentrancy = errors.New("operation already in progress")

	// ErrArithmetic means a tick index left the representable range or a
	// computation could not be resolved by modular wrap.
	ErrArithmetic = errors.New("arithmetic fault")

	// ErrUnknownPool means no pool is registered under the given id.
	ErrUnknownPool = errors.New("unknown pool")
)
