package simulator

import (
	"fmt"

	"github.com/hyperengineering/fluidbc/internal/material"
	"github.com/hyperengineering/fluidbc/internal/tensor"
	"github.com/hyperengineering/fluidbc/internal/types"
)

// Materials converts the points of a segment into the material batches a
// boundary model reads. Fluid densities are passed on only when every point
// carries one.
func Materials[V tensor.Vector](seg types.Segment) (*material.Inputs[V], *material.Outputs[V], error) {
	n := len(seg.Points)
	withFluid := n > 0
	for _, p := range seg.Points {
		if p.FluidDensity == nil {
			withFluid = false
			break
		}
	}

	in := material.NewInputs[V](n)
	out := material.NewOutputs[V](n, withFluid)
	for i, p := range seg.Points {
		pos, err := tensor.FromSlice[V](p.Position)
		if err != nil {
			return nil, nil, fmt.Errorf("point %d position: %w", i, err)
		}
		in.Positions[i] = pos
		in.Temperatures[i] = p.Temperature
		in.Pressures[i] = p.Pressure
		out.Densities[i] = p.Density
		if withFluid {
			out.FluidDensities[i] = *p.FluidDensity
		}
	}
	return in, out, nil
}
