// Package material holds the per-point material property batches a boundary
// model consumes. The batches are produced by the host's material model; this
// package only gives them a shape.
package material

import (
	"fmt"

	"github.com/hyperengineering/fluidbc/internal/tensor"
)

// Inputs are the quantities the material model was evaluated at.
// Positions defines the batch length; the other slices are either empty or
// the same length.
type Inputs[V tensor.Vector] struct {
	Positions    []V
	Temperatures []float64
	Pressures    []float64
	Velocities   []V
	Compositions [][]float64
}

// Outputs are the material properties at the points of the matching Inputs.
// FluidDensities is only filled by material models with melt transport.
type Outputs[V tensor.Vector] struct {
	Densities      []float64
	FluidDensities []float64
	Viscosities    []float64
}

// NewInputs returns an Inputs batch with n points and zeroed fields.
func NewInputs[V tensor.Vector](n int) *Inputs[V] {
	return &Inputs[V]{
		Positions:    make([]V, n),
		Temperatures: make([]float64, n),
		Pressures:    make([]float64, n),
		Velocities:   make([]V, n),
	}
}

// NewOutputs returns an Outputs batch with n points.
func NewOutputs[V tensor.Vector](n int, withFluid bool) *Outputs[V] {
	out := &Outputs[V]{
		Densities:   make([]float64, n),
		Viscosities: make([]float64, n),
	}
	if withFluid {
		out.FluidDensities = make([]float64, n)
	}
	return out
}

// Len returns the number of evaluation points.
func (in *Inputs[V]) Len() int {
	if in == nil {
		return 0
	}
	return len(in.Positions)
}

// Len returns the number of evaluation points, taken from Densities.
func (out *Outputs[V]) Len() int {
	if out == nil {
		return 0
	}
	return len(out.Densities)
}

// HasFluidDensities reports whether fluid densities were computed.
func (out *Outputs[V]) HasFluidDensities() bool {
	return out != nil && len(out.FluidDensities) == len(out.Densities) && len(out.FluidDensities) > 0
}

// CheckBatch verifies that in and out describe the same points.
func CheckBatch[V tensor.Vector](in *Inputs[V], out *Outputs[V]) error {
	n := in.Len()
	if out.Len() != n {
		return fmt.Errorf("material outputs hold %d points, inputs hold %d", out.Len(), n)
	}
	if in != nil {
		if err := optionalLen("temperatures", len(in.Temperatures), n); err != nil {
			return err
		}
		if err := optionalLen("pressures", len(in.Pressures), n); err != nil {
			return err
		}
		if err := optionalLen("velocities", len(in.Velocities), n); err != nil {
			return err
		}
		if err := optionalLen("compositions", len(in.Compositions), n); err != nil {
			return err
		}
	}
	if out != nil {
		if err := optionalLen("fluid densities", len(out.FluidDensities), n); err != nil {
			return err
		}
		if err := optionalLen("viscosities", len(out.Viscosities), n); err != nil {
			return err
		}
	}
	return nil
}

func optionalLen(field string, got, want int) error {
	if got != 0 && got != want {
		return fmt.Errorf("%s hold %d values, want %d", field, got, want)
	}
	return nil
}
