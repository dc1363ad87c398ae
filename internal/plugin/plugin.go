// Package plugin provides the name-keyed catalog that selectable models
// register themselves in.
//
// A Registry maps a unique name to a description, a function that declares
// the model's parameters, and a factory. Registration happens once at startup
// into an explicit Registry value; the registry is sealed the first time
// parameters are declared and is read-only from then on.
//
// The catalog never calls into a model beyond its two registered functions, so
// new models are added by registering them, without touching the registry.
package plugin

import "github.com/hyperengineering/fluidbc/internal/prm"

// DeclareFunc declares the parameters one model reads.
// It receives the registry's section of the parameter store and must be safe
// to call even when the model is not the one selected.
type DeclareFunc func(h *prm.Handler) error

// Factory constructs a fresh, unconfigured instance of a model.
type Factory[T any] func() T

// Entry is one registered model. Entries are immutable once registered.
type Entry[T any] struct {
	Name        string
	Description string
	Declare     DeclareFunc
	Factory     Factory[T]
}
