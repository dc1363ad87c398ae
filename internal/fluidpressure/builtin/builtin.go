// Package builtin registers the boundary models shipped with fluidbc.
package builtin

import (
	"github.com/hyperengineering/fluidbc/internal/fluidpressure"
	"github.com/hyperengineering/fluidbc/internal/fluidpressure/density"
	"github.com/hyperengineering/fluidbc/internal/fluidpressure/uniform"
	"github.com/hyperengineering/fluidbc/internal/plugin"
	"github.com/hyperengineering/fluidbc/internal/tensor"
)

// Register adds every built-in model to rs, in both dimensions.
func Register(rs *fluidpressure.Registries) error {
	if err := fluidpressure.RegisterModel(rs, density.Name, density.Description,
		density.DeclareParameters, density.New[tensor.Vec2], density.New[tensor.Vec3]); err != nil {
		return err
	}
	return fluidpressure.RegisterModel(rs, uniform.Name, uniform.Description,
		uniform.DeclareParameters, uniform.New[tensor.Vec2], uniform.New[tensor.Vec3])
}

// NewRegistries returns registries holding the built-in models, with
// fluidpressure.DefaultModel selected when the parameter file names none.
// More models may be registered before parameters are declared.
func NewRegistries() (*fluidpressure.Registries, error) {
	rs := fluidpressure.NewRegistries(plugin.WithDefault(fluidpressure.DefaultModel))
	if err := Register(rs); err != nil {
		return nil, err
	}
	return rs, nil
}
