// Package uniform implements a boundary model with the same prescribed fluid
// pressure gradient at every point.
package uniform

import (
	"fmt"
	"strings"

	"github.com/hyperengineering/fluidbc/internal/fluidpressure"
	"github.com/hyperengineering/fluidbc/internal/material"
	"github.com/hyperengineering/fluidbc/internal/prm"
	"github.com/hyperengineering/fluidbc/internal/tensor"
	"github.com/hyperengineering/fluidbc/internal/types"
)

const (
	// Name is the registered model name.
	Name = "uniform"

	// Description is shown in the model listing.
	Description = "A plugin that prescribes a constant fluid pressure gradient, " +
		"independent of position and material properties."
)

// DeclareParameters declares the gradient option.
func DeclareParameters(h *prm.Handler) error {
	return h.Enter(Name).Declare("gradient", "",
		prm.List(prm.AnyDouble(), 0, 3),
		"The fluid pressure gradient as a comma separated list with one component "+
			"per space dimension. Empty means zero.")
}

// Model is the uniform boundary model.
type Model[V tensor.Vector] struct {
	fluidpressure.Base

	gradient V
}

// New returns an unconfigured uniform model.
func New[V tensor.Vector]() fluidpressure.Interface[V] {
	return &Model[V]{}
}

// Gradient returns the parsed gradient.
func (m *Model[V]) Gradient() V { return m.gradient }

// ParseParameters reads the gradient, which must have one component per
// dimension unless it is empty.
func (m *Model[V]) ParseParameters(h *prm.Handler) error {
	sec := h.Enter(Name)
	xs, err := sec.GetDoubles("gradient")
	if err != nil {
		return err
	}
	if len(xs) == 0 {
		var zero V
		m.gradient = zero
		return nil
	}

	g, err := tensor.FromSlice[V](xs)
	if err != nil {
		raw, _ := sec.Raw("gradient")
		return &prm.MalformedValueError{
			Key:     strings.TrimPrefix(sec.Section()+".gradient", "."),
			Value:   raw,
			Pattern: fmt.Sprintf("[List of %d numbers]", tensor.Dim[V]()),
			Reason:  err,
		}
	}
	m.gradient = g
	return nil
}

// FluidPressureGradient writes the configured gradient for every point.
func (m *Model[V]) FluidPressureGradient(_ types.BoundaryID, _ *material.Inputs[V], _ *material.Outputs[V], result []V) error {
	for i := range result {
		result[i] = m.gradient
	}
	return nil
}
