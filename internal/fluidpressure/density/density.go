// Package density implements the boundary model in which the fluid pressure
// gradient equals a density times the gravity vector.
package density

import (
	"errors"
	"fmt"

	"github.com/hyperengineering/fluidbc/internal/fluidpressure"
	"github.com/hyperengineering/fluidbc/internal/gravity"
	"github.com/hyperengineering/fluidbc/internal/material"
	"github.com/hyperengineering/fluidbc/internal/prm"
	"github.com/hyperengineering/fluidbc/internal/tensor"
	"github.com/hyperengineering/fluidbc/internal/types"
)

const (
	// Name is the registered model name.
	Name = "density"

	// Description is shown in the model listing.
	Description = "A plugin that prescribes the fluid pressure gradient at the boundary " +
		"as the product of a density and the gravity vector. The density is either the " +
		"solid or the fluid density, selected with `density_formulation'."

	SolidDensity = "solid density"
	FluidDensity = "fluid density"
)

// ErrNoFluidDensities is returned when the fluid density formulation is
// selected but the material model did not compute fluid densities.
var ErrNoFluidDensities = errors.New("material model outputs carry no fluid densities")

// DeclareParameters declares the density formulation option.
func DeclareParameters(h *prm.Handler) error {
	return h.Enter(Name).Declare("density_formulation", SolidDensity,
		prm.Selection(SolidDensity, FluidDensity),
		"The density used to compute the fluid pressure gradient at the boundary. "+
			"`fluid density' needs a material model that computes fluid densities.")
}

// Model is the density boundary model.
type Model[V tensor.Vector] struct {
	fluidpressure.Accessor[V]

	formulation string
	gravity     gravity.Model[V]
}

// New returns an unconfigured density model.
func New[V tensor.Vector]() fluidpressure.Interface[V] {
	return &Model[V]{}
}

// Formulation returns the parsed density formulation.
func (m *Model[V]) Formulation() string { return m.formulation }

// ParseParameters reads the density formulation.
func (m *Model[V]) ParseParameters(h *prm.Handler) error {
	f, err := h.Enter(Name).Get("density_formulation")
	if err != nil {
		return err
	}
	m.formulation = f
	return nil
}

// Initialize takes the gravity model from the simulator.
func (m *Model[V]) Initialize() error {
	if err := m.RequireSimulator(); err != nil {
		return err
	}
	m.gravity = m.Simulator().Gravity()
	if m.gravity == nil {
		return fmt.Errorf("%s model: simulator provides no gravity model", Name)
	}
	return nil
}

// FluidPressureGradient computes rho[i] * g(x[i]) for every point.
func (m *Model[V]) FluidPressureGradient(_ types.BoundaryID, in *material.Inputs[V], out *material.Outputs[V], result []V) error {
	if len(result) == 0 {
		return nil
	}

	rho := out.Densities
	if m.formulation == FluidDensity {
		if !out.HasFluidDensities() {
			return ErrNoFluidDensities
		}
		rho = out.FluidDensities
	}

	for i := range result {
		result[i] = tensor.Scale(m.gravity.GravityVector(in.Positions[i]), rho[i])
	}
	return nil
}

var _ fluidpressure.SimulatorAware[tensor.Vec2] = (*Model[tensor.Vec2])(nil)
