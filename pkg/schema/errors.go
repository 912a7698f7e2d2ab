package schema

import "fmt"

// ValidationError represents a single value validation failure.
type ValidationError struct {
	Field  string // optional: field or question id the value was feeding
	Type   string // the expected question type
	Reason string // human-readable reason for failure
	Value  any    // the value that failed validation
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("field %q: %s (type %s, got %T)", e.Field, e.Reason, e.Type, e.Value)
	}
	return fmt.Sprintf("%s (type %s, got %T)", e.Reason, e.Type, e.Value)
}

// AggregateError represents multiple validation failures, e.g. from snapshot
// schema validation.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// Unwrap exposes the collected errors to errors.Is/As.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}
