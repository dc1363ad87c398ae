package prm

import (
	"errors"
	"fmt"
)

var (
	// ErrUndeclared indicates a read of a parameter nobody declared.
	// This is a programming error in the reader.
	ErrUndeclared = errors.New("parameter not declared")

	// ErrInvalidDefault indicates a declaration whose default does not match its pattern.
	ErrInvalidDefault = errors.New("default value does not match pattern")

	// ErrMalformedValue indicates a supplied value that fails its pattern.
	ErrMalformedValue = errors.New("malformed parameter value")
)

// MalformedValueError reports a configured value that fails its declared pattern.
type MalformedValueError struct {
	Key     string
	Value   string
	Pattern string
	Reason  error
}

// Error implements the error interface.
func (e *MalformedValueError) Error() string {
	msg := fmt.Sprintf("invalid value %q for parameter %q: expected %s", e.Value, e.Key, e.Pattern)
	if e.Reason != nil {
		msg += " (" + e.Reason.Error() + ")"
	}
	return msg
}

// Unwrap returns ErrMalformedValue for errors.Is() compatibility.
func (e *MalformedValueError) Unwrap() error {
	return ErrMalformedValue
}
