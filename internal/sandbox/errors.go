package sandbox

import (
	"errors"
	"fmt"
)

var (
	// ErrExecutionTimeout is returned when a function body does not
	// return within its wall-clock budget. Terminal for that one call;
	// other in-flight calls are unaffected.
	ErrExecutionTimeout = errors.New("execution timeout: function exceeded its budget")

	// ErrFuelExhausted is returned when the interpreter step limit is
	// hit before the wall clock runs out. It wraps ErrExecutionTimeout
	// so callers can treat both overruns as one condition.
	ErrFuelExhausted = fmt.Errorf("execution budget exhausted: %w", ErrExecutionTimeout)

	// ErrReadOnlyViolation is returned when sandboxed code mutates a
	// read-only table or view reached through a parameter.
	ErrReadOnlyViolation = errors.New("read-only violation")

	// ErrFunctionValueNotAllowed is returned when a callable value is
	// passed where data is expected.
	ErrFunctionValueNotAllowed = errors.New("function values are not allowed as arguments")
)

// CompileError is a terminal failure to parse a function body.
type CompileError struct {
	Line    int
	Message string
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// RuntimeError is a fault raised while interpreting a body: bad
// operand kinds, unknown identifiers, unknown builtins.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string {
	return e.Message
}

func runtimeErrf(format string, args ...any) error {
	return &RuntimeError{Message: fmt.Sprintf(format, args...)}
}
