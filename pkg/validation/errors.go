package validation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateField is reported when two fields share an id.
	ErrDuplicateField = errors.New("duplicate field id")
	// ErrMissingOptions is reported for select/radio fields without options.
	ErrMissingOptions = errors.New("choice field requires at least one option")
	// ErrEmptyFieldID is reported for fields without an id.
	ErrEmptyFieldID = errors.New("field id is required")
	// ErrUnknownFieldType is reported for type tags outside the supported set.
	ErrUnknownFieldType = errors.New("unknown field type")
	// ErrInvalidPattern is reported when a pattern constraint does not compile.
	ErrInvalidPattern = errors.New("invalid pattern")
	// ErrInvalidBounds is reported when a lower bound exceeds its upper bound.
	ErrInvalidBounds = errors.New("invalid bounds")
	// ErrUnknownField is returned when a caller references a field the schema
	// does not declare.
	ErrUnknownField = errors.New("validation: unknown field")
)

// SchemaIssue pins a schema defect to the offending field.
type SchemaIssue struct {
	Field string
	Err   error
}

func (i SchemaIssue) Error() string {
	if i.Field == "" {
		return i.Err.Error()
	}
	return fmt.Sprintf("field %q: %v", i.Field, i.Err)
}

// SchemaError is returned by Compile when the schema cannot be rendered. It
// lists every defect found, so a schema author can fix them in one pass.
type SchemaError struct {
	SchemaID string
	Issues   []SchemaIssue
}

func (e *SchemaError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Error())
	}
	id := e.SchemaID
	if id == "" {
		id = "<unnamed>"
	}
	return fmt.Sprintf("validation: schema %s: %s", id, strings.Join(parts, "; "))
}

// Unwrap exposes the issue causes so errors.Is matches the sentinels above.
func (e *SchemaError) Unwrap() []error {
	out := make([]error, 0, len(e.Issues))
	for _, issue := range e.Issues {
		out = append(out, issue.Err)
	}
	return out
}

func (e *SchemaError) add(field string, err error) {
	e.Issues = append(e.Issues, SchemaIssue{Field: field, Err: err})
}

// AsSchemaError extracts a *SchemaError from err.
func AsSchemaError(err error) (*SchemaError, bool) {
	var target *SchemaError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
