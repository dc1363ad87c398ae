package plugin

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicate indicates a name is already registered.
	ErrDuplicate = errors.New("plugin already registered")

	// ErrSealed indicates a registration after parameters were declared.
	ErrSealed = errors.New("plugin registry sealed")

	// ErrInvalidRegistration indicates an empty name or a nil factory.
	ErrInvalidRegistration = errors.New("invalid plugin registration")

	// ErrUnknown indicates the configured name matches no registered model.
	ErrUnknown = errors.New("unknown model name")
)

// UnknownNameError reports a selection that names no registered model.
type UnknownNameError struct {
	// Parameter is the full key of the selector parameter.
	Parameter string
	// Name is the configured value; empty when nothing was selected.
	Name string
	// Valid lists the registered names, sorted.
	Valid []string
}

// Error implements the error interface.
func (e *UnknownNameError) Error() string {
	valid := "none registered"
	if len(e.Valid) > 0 {
		valid = strings.Join(e.Valid, ", ")
	}
	if e.Name == "" {
		return fmt.Sprintf("no model selected in %s; valid choices: %s", e.Parameter, valid)
	}
	return fmt.Sprintf("unknown model name %q in %s; valid choices: %s", e.Name, e.Parameter, valid)
}

// Unwrap returns ErrUnknown for errors.Is() compatibility.
func (e *UnknownNameError) Unwrap() error {
	return ErrUnknown
}
