package instruct

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyDocument is returned when a source document is an empty string.
var ErrEmptyDocument = errors.New("document text is empty")
var ErrEmptyAssets = errors.New("no assets provided")
var ErrMissingSchema = errors.New("schema is required")
var ErrNoHandler = errors.New("no handler registered for schema")

// SchemaCode classifies schema construction failures.
type SchemaCode string

const (
	DuplicateField  SchemaCode = "duplicate_field"
	UnsupportedType SchemaCode = "unsupported_type"
	CyclicSchema    SchemaCode = "cyclic_schema"
)

// SchemaError reports an invalid schema definition. Schema errors are fatal:
// they surface at build time and never enter the retry loop.
type SchemaError struct {
	Code  SchemaCode
	Field string // offending field name, empty for whole-schema errors
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema: %s", e.Code)
	}
	return fmt.Sprintf("schema: %s: %q", e.Code, e.Field)
}

// BackendError is returned when the generation backend keeps failing after
// the transient-failure retry budget is spent.
type BackendError struct {
	Attempts int   // invocations performed, including retries
	Err      error // last error from the backend
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend failed after %d invocation(s): %v", e.Attempts, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// ExhaustedError is returned when every validation attempt failed. The full
// attempt history is attached so callers can inspect what went wrong.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	var last string
	if n := len(e.Attempts); n > 0 {
		msgs := make([]string, 0, len(e.Attempts[n-1].Errors))
		for _, fe := range e.Attempts[n-1].Errors {
			msgs = append(msgs, fe.Error())
		}
		last = ": " + strings.Join(msgs, "; ")
	}
	return fmt.Sprintf("extraction exhausted after %d attempt(s)%s", len(e.Attempts), last)
}
