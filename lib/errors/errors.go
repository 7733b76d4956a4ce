// Package errors provides the error taxonomy for the round-robin shard pool.
//
// Every failure surfaced to a caller is an *Error that carries two things:
// the category (one of the sentinel errors below) and the original cause.
// Both can be matched with errors.Is, so callers can branch on the category
// while still inspecting what actually went wrong underneath.
package errors

import (
	"errors"
	"strings"
)

// Error codes for categorizing failures.
const (
	CodeInternal        = 1000 // Uncategorized error
	CodeEmptyShardSet   = 1001 // No endpoints configured
	CodeConnectionSetup = 1002 // Transport or auth failure while creating a handle
	CodePoolExhausted   = 1003 // No handle available within the wait policy
	CodePoolReturn      = 1004 // Pool rejected a return or invalidation
	CodePoolShutdown    = 1005 // Pool rejected a shutdown
	CodePoolClosed      = 1006 // Operation on a closed pool
	CodeTimeout         = 1007 // Bounded wait elapsed
	CodeCircuitOpen     = 1008 // Shard circuit breaker rejected the attempt
	CodeInvalidConfig   = 1009 // Configuration failed validation
)

// Sentinel errors. Use errors.Is() to check for these conditions.
var (
	// ErrEmptyShardSet indicates no endpoints are configured.
	// Recoverable once a shard is added.
	ErrEmptyShardSet = errors.New("empty shard set")

	// ErrConnectionSetup indicates a transport or authentication failure
	// while creating a pooled connection.
	ErrConnectionSetup = errors.New("connection setup failed")

	// ErrPoolExhausted indicates no connection became available within policy.
	ErrPoolExhausted = errors.New("pool exhausted")

	// ErrPoolReturn indicates the pool rejected a returned connection.
	ErrPoolReturn = errors.New("could not return connection to pool")

	// ErrPoolShutdown indicates the pool could not be shut down.
	ErrPoolShutdown = errors.New("could not shut down pool")

	// ErrPoolClosed indicates the pool is closed.
	ErrPoolClosed = errors.New("pool is closed")

	// ErrTimeout indicates a bounded wait elapsed.
	ErrTimeout = errors.New("operation timed out")

	// ErrCircuitOpen indicates the circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrInvalidConfig indicates a configuration error.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Error is a categorized error carrying the original cause.
type Error struct {
	// Code is the error code for categorization
	Code int
	// Op names the operation that failed, e.g. "get connection"
	Op string
	// Kind is the sentinel category
	Kind error
	// Err is the underlying cause
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Kind != nil {
		parts = append(parts, e.Kind.Error())
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap exposes both the category and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Cause returns the underlying error, or nil.
func (e *Error) Cause() error {
	return e.Err
}

// New creates a categorized error without an underlying cause.
func New(kind error, op string) *Error {
	return &Error{
		Code: codeFromError(kind),
		Op:   op,
		Kind: kind,
	}
}

// Wrap categorizes err under kind for the named operation.
func Wrap(kind error, op string, err error) *Error {
	if err != nil {
		log.WithField("op", op).WithError(err).Debug("wrapping error")
	}
	return &Error{
		Code: codeFromError(kind),
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// FromSentinel creates a structured error from a sentinel error.
// It automatically assigns an appropriate error code based on the error type.
func FromSentinel(err error) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Code: codeFromError(err),
		Kind: err,
	}
}

// CodeOf returns the code of the first *Error in err's tree,
// or a code derived from the sentinels it wraps.
func CodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return codeFromError(err)
}

// codeFromError maps sentinel errors to error codes.
func codeFromError(err error) int {
	switch {
	case err == nil:
		return CodeInternal
	case errors.Is(err, ErrEmptyShardSet):
		return CodeEmptyShardSet
	case errors.Is(err, ErrConnectionSetup):
		return CodeConnectionSetup
	case errors.Is(err, ErrPoolExhausted):
		return CodePoolExhausted
	case errors.Is(err, ErrPoolReturn):
		return CodePoolReturn
	case errors.Is(err, ErrPoolShutdown):
		return CodePoolShutdown
	case errors.Is(err, ErrPoolClosed):
		return CodePoolClosed
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	case errors.Is(err, ErrCircuitOpen):
		return CodeCircuitOpen
	case errors.Is(err, ErrInvalidConfig):
		return CodeInvalidConfig
	default:
		return CodeInternal
	}
}

// IsEmptyShardSet returns true if no endpoints were configured.
func IsEmptyShardSet(err error) bool {
	return errors.Is(err, ErrEmptyShardSet)
}

// IsConnectionSetup returns true if creating a connection failed.
func IsConnectionSetup(err error) bool {
	return errors.Is(err, ErrConnectionSetup)
}

// IsPoolExhausted returns true if no connection was available within policy.
func IsPoolExhausted(err error) bool {
	return errors.Is(err, ErrPoolExhausted)
}

// IsPoolClosed returns true if the pool was closed.
func IsPoolClosed(err error) bool {
	return errors.Is(err, ErrPoolClosed)
}

// IsTimeout returns true if the error indicates a timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// Join combines multiple errors into a single error.
// Returns nil if all errors are nil.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target,
// and if so, sets target to that error value and returns true.
func As(err error, target any) bool {
	return errors.As(err, target)
}
