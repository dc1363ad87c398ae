package fluidpressure

import (
	"fmt"

	"github.com/hyperengineering/fluidbc/internal/plugin"
	"github.com/hyperengineering/fluidbc/internal/tensor"
)

const selectorDoc = "Select one of the following models to compute the fluid pressure gradient at the boundary."

// NewRegistry creates an empty model registry for dimension V.
func NewRegistry[V tensor.Vector](opts ...plugin.Option) *plugin.Registry[Interface[V]] {
	opts = append([]plugin.Option{plugin.WithSelectorDoc(selectorDoc)}, opts...)
	return plugin.New[Interface[V]](Section, Selector, opts...)
}

// Registries holds one independent registry per supported dimension.
type Registries struct {
	Dim2 *plugin.Registry[Interface[tensor.Vec2]]
	Dim3 *plugin.Registry[Interface[tensor.Vec3]]
}

// NewRegistries creates an empty registry for every supported dimension.
func NewRegistries(opts ...plugin.Option) *Registries {
	return &Registries{
		Dim2: NewRegistry[tensor.Vec2](opts...),
		Dim3: NewRegistry[tensor.Vec3](opts...),
	}
}

// RegisterModel registers one model in both dimensions under the same name.
// Models are generic over tensor.Vector, so the factories are usually the
// two instantiations of the same constructor:
//
//	RegisterModel(rs, "density", desc, density.DeclareParameters,
//		density.New[tensor.Vec2], density.New[tensor.Vec3])
func RegisterModel(
	rs *Registries,
	name, description string,
	declare plugin.DeclareFunc,
	new2 plugin.Factory[Interface[tensor.Vec2]],
	new3 plugin.Factory[Interface[tensor.Vec3]],
) error {
	if err := rs.Dim2.Register(name, description, declare, new2); err != nil {
		return fmt.Errorf("register 2d model: %w", err)
	}
	if err := rs.Dim3.Register(name, description, declare, new3); err != nil {
		return fmt.Errorf("register 3d model: %w", err)
	}
	return nil
}

// Seal seals both registries.
func (rs *Registries) Seal() {
	rs.Dim2.Seal()
	rs.Dim3.Seal()
}
