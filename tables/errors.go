package tables

import (
	"errors"
	"fmt"
)

const (
	// CodeTableNotFound is reported by PostgREST when the table is absent from its schema cache.
	CodeTableNotFound = "PGRST205"
	// CodeUndefinedTable is the postgres undefined_table class.
	CodeUndefinedTable  = "42P01"
	CodeUniqueViolation = "23505"
	CodeBackend         = "backend"
)

// Error is the structured failure of a remote table call.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`

	Cause error `json:"-"`
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsTableMissing reports whether err says the target table does not exist.
func IsTableMissing(err error) bool {
	code := CodeOf(err)
	return code == CodeTableNotFound || code == CodeUndefinedTable
}

func MissingTable(table string) *Error {
	return &Error{Code: CodeTableNotFound, Message: fmt.Sprintf("Could not find the table 'public.%s' in the schema cache", table)}
}
