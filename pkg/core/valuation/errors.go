package valuation

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is matched by every InvalidInputError via errors.Is.
var ErrInvalidInput = errors.New("invalid valuation input")

// InvalidInputError reports a malformed or economically meaningless input.
// Retrying with the same input cannot succeed.
type InvalidInputError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %s (%g): %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field string, value float64, reason string) *InvalidInputError {
	return &InvalidInputError{Field: field, Value: value, Reason: reason}
}

func requireFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(field, v, "must be a finite number")
	}
	return nil
}

type namedValue struct {
	name  string
	value float64
}

func requireAllFinite(values ...namedValue) error {
	for _, v := range values {
		if err := requireFinite(v.name, v.value); err != nil {
			return err
		}
	}
	return nil
}
