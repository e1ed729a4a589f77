package gridbase

import (
	"github.com/kartikbazzad/gridbase/catalog"
	"github.com/kartikbazzad/gridbase/internal/query"
	"github.com/kartikbazzad/gridbase/internal/sandbox"
)

// Error types surfaced by the engine. Queries fail with ParseError,
// UnknownTableError, UnknownAggregateError or UnknownFunctionError;
// function calls fail with CompileError, UnknownFunctionError,
// RuntimeError or one of the sentinel errors below.
type (
	ParseError            = query.ParseError
	UnknownTableError     = query.UnknownTableError
	UnknownAggregateError = query.UnknownAggregateError
	UnknownFunctionError  = catalog.UnknownFunctionError

	CompileError = sandbox.CompileError
	RuntimeError = sandbox.RuntimeError
)

var (
	// ErrExecutionTimeout: the function body did not return within its
	// wall-clock budget. Terminal for that one call.
	ErrExecutionTimeout = sandbox.ErrExecutionTimeout

	// ErrFuelExhausted: the interpreter step limit was hit first.
	ErrFuelExhausted = sandbox.ErrFuelExhausted

	// ErrReadOnlyViolation: sandboxed code mutated a table or view
	// reached through a parameter.
	ErrReadOnlyViolation = sandbox.ErrReadOnlyViolation

	// ErrFunctionValueNotAllowed: a callable was passed as an argument.
	ErrFunctionValueNotAllowed = sandbox.ErrFunctionValueNotAllowed
)
