// Package validation provides reusable checks for rrpool configuration.
// Every validator returns nil on success or a *Result naming the field.
package validation

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"
)

// Sentinel errors. Check with errors.Is().
var (
	// ErrRequired indicates a required field is missing or empty.
	ErrRequired = errors.New("field is required")

	// ErrInvalidFormat indicates a value doesn't match the expected format.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrOutOfRange indicates a numeric value is outside the allowed range.
	ErrOutOfRange = errors.New("value out of range")
)

// MaxHostLength is the longest hostname accepted.
const MaxHostLength = 253

// hostnamePattern matches DNS hostnames made of letters, digits, hyphens,
// and dots.
var hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?)*$`)

// Result represents a validation result with field context.
type Result struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (r *Result) Error() string {
	if r.Field != "" {
		return fmt.Sprintf("%s: %s", r.Field, r.Message)
	}
	return r.Message
}

// Unwrap returns the underlying error for errors.Is() support.
func (r *Result) Unwrap() error {
	return r.Err
}

// NewResult creates a validation result.
func NewResult(field, message string, err error) *Result {
	return &Result{
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// Required validates that a string is non-empty.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return NewResult(field, "is required", ErrRequired)
	}
	return nil
}

// Host validates a hostname or IP address.
func Host(field, value string) error {
	if err := Required(field, value); err != nil {
		return err
	}
	if net.ParseIP(value) != nil {
		return nil
	}
	if len(value) > MaxHostLength || !hostnamePattern.MatchString(value) {
		return NewResult(field, "must be a hostname or IP address", ErrInvalidFormat)
	}
	return nil
}

// Port validates a network port number.
func Port(field string, value int) error {
	if value < 1 || value > 65535 {
		return NewResult(field, "must be between 1 and 65535", ErrOutOfRange)
	}
	return nil
}

// HostPort validates a host:port address.
func HostPort(field, value string) error {
	if err := Required(field, value); err != nil {
		return err
	}

	_, _, err := net.SplitHostPort(value)
	if err != nil {
		return NewResult(field, "must be in host:port format", ErrInvalidFormat)
	}

	return nil
}

// IntRange validates that an integer is within the given range (inclusive).
func IntRange(field string, value, min, max int) error {
	if value < min || value > max {
		return NewResult(field, fmt.Sprintf("must be between %d and %d", min, max), ErrOutOfRange)
	}
	return nil
}

// Positive validates that an integer is positive (> 0).
func Positive(field string, value int) error {
	if value <= 0 {
		return NewResult(field, "must be positive", ErrOutOfRange)
	}
	return nil
}

// NonNegative validates that an integer is non-negative (>= 0).
func NonNegative(field string, value int) error {
	if value < 0 {
		return NewResult(field, "must be non-negative", ErrOutOfRange)
	}
	return nil
}

// Limit validates a capacity where a negative value means unlimited and
// zero is not allowed.
func Limit(field string, value int) error {
	if value == 0 {
		return NewResult(field, "must be positive, or negative for no limit", ErrOutOfRange)
	}
	return nil
}

// Capacity checks that a limit leaves room for need items. A negative
// limit means no limit.
func Capacity(field string, limit, need int) error {
	if limit >= 0 && limit < need {
		return NewResult(field, fmt.Sprintf("must be at least %d", need), ErrOutOfRange)
	}
	return nil
}

// NonNegativeDuration validates that a duration is not negative.
func NonNegativeDuration(field string, value time.Duration) error {
	if value < 0 {
		return NewResult(field, "duration cannot be negative", ErrOutOfRange)
	}
	return nil
}

// NonNegativeFloat validates that a float is not negative.
func NonNegativeFloat(field string, value float64) error {
	if value < 0 {
		return NewResult(field, "must be non-negative", ErrOutOfRange)
	}
	return nil
}

// All runs multiple validation functions and returns the first error.
func All(validators ...func() error) error {
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

// Errors collects multiple validation errors.
type Errors []error

// Add appends an error to the collection (nil errors are ignored).
func (e *Errors) Add(err error) {
	if err != nil {
		*e = append(*e, err)
	}
}

// HasErrors returns true if any errors were collected.
func (e Errors) HasErrors() bool {
	return len(e) > 0
}

// Error returns all errors as a single error message.
func (e Errors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("multiple validation errors: ")
	for i, err := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e Errors) Unwrap() []error {
	return e
}

// Err returns e as an error, or nil when nothing was collected.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
