package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInputParse marks input that is not valid JSON or lacks the
	// "localized_events" key.
	ErrInputParse = errors.New("input parse error")

	// ErrInputSchema marks an event that is missing a required field or
	// carries a field of the wrong type.
	ErrInputSchema = errors.New("input schema error")
)

// SchemaError reports which event and field broke the input schema.
// It matches ErrInputSchema with errors.Is.
type SchemaError struct {
	Index int // position in localized_events, -1 if unknown
	Field string
	Err   error // nil when the field is absent
}

func (e *SchemaError) Error() string {
	where := "event"
	if e.Index >= 0 {
		where = fmt.Sprintf("event %d", e.Index)
	}
	if e.Field == "" {
		return fmt.Sprintf("%s: %s: %v", ErrInputSchema, where, e.Err)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s: missing required field %q", ErrInputSchema, where, e.Field)
	}
	return fmt.Sprintf("%s: %s: field %q: %v", ErrInputSchema, where, e.Field, e.Err)
}

func (e *SchemaError) Is(target error) bool { return target == ErrInputSchema }

func (e *SchemaError) Unwrap() error { return e.Err }
