package fluidpressure

import (
	"fmt"

	"github.com/hyperengineering/fluidbc/internal/material"
	"github.com/hyperengineering/fluidbc/internal/plugin"
	"github.com/hyperengineering/fluidbc/internal/prm"
	"github.com/hyperengineering/fluidbc/internal/tensor"
	"github.com/hyperengineering/fluidbc/internal/types"
)

// ContractViolation is the panic value raised when a model is used in a way
// the contract forbids. It indicates a bug in the host or in a model.
type ContractViolation struct {
	Op     string
	Reason string
}

// Error implements the error interface.
func (e *ContractViolation) Error() string {
	return "fluidpressure: contract violation in " + e.Op + ": " + e.Reason
}

// Model is a selected, configured and initialized boundary model.
// It is safe for concurrent evaluation if the underlying model is.
type Model[V tensor.Vector] struct {
	name string
	impl Interface[V]
}

// Setup creates the model selected in h, hands it sim if it wants simulator
// access, lets it parse its parameters and initializes it. h must already
// hold the declared and read parameters. Nothing is evaluated if any step
// fails.
func Setup[V tensor.Vector](reg *plugin.Registry[Interface[V]], h *prm.Handler, sim SimulatorAccess[V]) (*Model[V], error) {
	name, err := reg.Selected(h)
	if err != nil {
		return nil, err
	}
	impl, err := reg.Build(name)
	if err != nil {
		return nil, err
	}

	if aware, ok := impl.(SimulatorAware[V]); ok && sim != nil {
		aware.SetSimulator(sim)
	}
	if err := impl.ParseParameters(reg.Scope(h)); err != nil {
		return nil, fmt.Errorf("parse parameters of %q: %w", name, err)
	}
	if err := impl.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize %q: %w", name, err)
	}

	return &Model[V]{name: name, impl: impl}, nil
}

// Name returns the registered name of the model.
func (m *Model[V]) Name() string { return m.name }

// Impl returns the underlying model.
func (m *Model[V]) Impl() Interface[V] { return m.impl }

// FluidPressureGradient checks the evaluation contract and delegates to the
// model. Mismatched batch lengths, including optional material fields of the
// wrong length, and use of a Model not obtained from Setup
// panic with *ContractViolation. Errors from the model are returned as is.
func (m *Model[V]) FluidPressureGradient(boundary types.BoundaryID, in *material.Inputs[V], out *material.Outputs[V], result []V) error {
	const op = "FluidPressureGradient"
	if m == nil || m.impl == nil {
		panic(&ContractViolation{Op: op, Reason: "model evaluated before setup"})
	}
	if err := material.CheckBatch(in, out); err != nil {
		panic(&ContractViolation{Op: op, Reason: err.Error()})
	}
	n := in.Len()
	if len(result) != n {
		panic(&ContractViolation{Op: op, Reason: fmt.Sprintf("result holds %d entries, batch holds %d points", len(result), n)})
	}
	return m.impl.FluidPressureGradient(boundary, in, out, result)
}
