package query

import (
	"fmt"
	"strings"
)

// ParseError is a terminal parse failure naming the offending clause so
// the calling UI can surface an actionable message.
type ParseError struct {
	Clause  string
	Message string
}

func (e *ParseError) Error() string {
	return e.Message
}

// UnknownTableError is returned when the FROM or JOIN table does not
// exist in the catalog. It carries the known names for the caller's UI.
type UnknownTableError struct {
	Name      string
	Available []string
}

func (e *UnknownTableError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown table %q (no tables in catalog)", e.Name)
	}
	return fmt.Sprintf("unknown table %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// UnknownAggregateError is returned at execution time for an aggregate
// name the engine does not implement.
type UnknownAggregateError struct {
	Name string
}

func (e *UnknownAggregateError) Error() string {
	return fmt.Sprintf("unknown aggregate %q (known: %s)", e.Name, strings.Join(aggregateNames, ", "))
}
