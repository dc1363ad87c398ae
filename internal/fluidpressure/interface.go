// Package fluidpressure defines the contract every boundary fluid pressure
// model implements and the per-dimension registries models are selected from.
//
// A model computes, for each evaluation point on a boundary, the gradient of
// the fluid pressure. Typically that is a density times the gravity vector at
// the point. Models are written once against tensor.Vector and registered
// separately for 2d and 3d.
//
// The host drives every model through the same lifecycle: parameters of all
// registered models are declared, the selected model is created, it reads its
// parameters, it is initialized, and then FluidPressureGradient is called
// repeatedly, possibly from several goroutines at once. Setup performs the
// first steps and returns a Model that checks the evaluation contract.
package fluidpressure

import (
	"errors"

	"github.com/hyperengineering/fluidbc/internal/gravity"
	"github.com/hyperengineering/fluidbc/internal/material"
	"github.com/hyperengineering/fluidbc/internal/prm"
	"github.com/hyperengineering/fluidbc/internal/tensor"
	"github.com/hyperengineering/fluidbc/internal/types"
)

const (
	// Section is the parameter section models declare into.
	Section = "boundary_fluid_pressure_model"

	// Selector is the parameter inside Section naming the model to use.
	Selector = "plugin_name"

	// DefaultModel is selected when the parameter file names none.
	DefaultModel = "density"
)

// ErrNoSimulator is returned by models that need simulator access but were
// set up without it.
var ErrNoSimulator = errors.New("model requires simulator access")

// Interface is the contract of a boundary fluid pressure model in dimension V.
//
// Besides these methods every model provides a package-level function of type
// plugin.DeclareFunc that declares its parameters; it is passed to the
// registry together with the factory.
type Interface[V tensor.Vector] interface {
	// Initialize is called once, after ParseParameters and before the first
	// evaluation.
	Initialize() error

	// ParseParameters reads the parameters this model declared. It is called
	// once, right after construction. Parameters declared by other models may
	// be present and must be ignored.
	ParseParameters(h *prm.Handler) error

	// FluidPressureGradient writes one gradient per evaluation point into
	// result, in input order. in, out and result all have the same length,
	// which may be zero. result must not be resized.
	//
	// Calls may run concurrently for different boundary segments; models
	// must treat their own state as read-only here or synchronize.
	FluidPressureGradient(boundary types.BoundaryID, in *material.Inputs[V], out *material.Outputs[V], result []V) error
}

// Base provides the default, no-op Initialize and ParseParameters.
// Models without parameters or setup embed it.
type Base struct{}

// Initialize does nothing.
func (Base) Initialize() error { return nil }

// ParseParameters reads nothing.
func (Base) ParseParameters(*prm.Handler) error { return nil }

// SimulatorAccess is the part of the running simulation a model may query.
type SimulatorAccess[V tensor.Vector] interface {
	Gravity() gravity.Model[V]
}

// SimulatorAware is implemented by models that want simulator access.
// The host calls SetSimulator after construction, before ParseParameters.
type SimulatorAware[V tensor.Vector] interface {
	SetSimulator(sim SimulatorAccess[V])
}

// Accessor is embedded by models to implement SimulatorAware.
type Accessor[V tensor.Vector] struct {
	sim SimulatorAccess[V]
}

// SetSimulator stores the simulator context.
func (a *Accessor[V]) SetSimulator(sim SimulatorAccess[V]) { a.sim = sim }

// Simulator returns the stored simulator context, or nil.
func (a *Accessor[V]) Simulator() SimulatorAccess[V] { return a.sim }

// RequireSimulator returns ErrNoSimulator if no context was set.
func (a *Accessor[V]) RequireSimulator() error {
	if a.sim == nil {
		return ErrNoSimulator
	}
	return nil
}
