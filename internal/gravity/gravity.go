// Package gravity provides the gravity models a host hands to boundary models
// through the simulator context.
package gravity

import (
	"errors"
	"fmt"

	"github.com/hyperengineering/fluidbc/internal/tensor"
)

// ErrUnknownModel is returned by New for an unrecognized gravity model name.
var ErrUnknownModel = errors.New("unknown gravity model")

// Model returns the gravity vector at a position.
// Implementations must be safe for concurrent use.
type Model[V tensor.Vector] interface {
	GravityVector(position V) V
}

// Vertical is a constant gravity field pointing along the negative last
// coordinate axis: (0, -g) in 2d and (0, 0, -g) in 3d.
type Vertical[V tensor.Vector] struct {
	Magnitude float64
}

// GravityVector returns the same vector for every position.
func (g Vertical[V]) GravityVector(V) V {
	return tensor.Unit[V](tensor.Dim[V]()-1, -g.Magnitude)
}

// Radial points toward the origin with constant magnitude.
// At the origin it returns the zero vector.
type Radial[V tensor.Vector] struct {
	Magnitude float64
}

// GravityVector returns -g * position/|position|.
func (g Radial[V]) GravityVector(position V) V {
	r := tensor.Norm(position)
	if r == 0 {
		var zero V
		return zero
	}
	return tensor.Scale(position, -g.Magnitude/r)
}

// Names returns the recognized gravity model names, sorted.
func Names() []string {
	return []string{"radial", "vertical"}
}

// New builds the named gravity model for dimension V.
func New[V tensor.Vector](name string, magnitude float64) (Model[V], error) {
	switch name {
	case "vertical":
		return Vertical[V]{Magnitude: magnitude}, nil
	case "radial":
		return Radial[V]{Magnitude: magnitude}, nil
	default:
		return nil, fmt.Errorf("%w %q (valid: %v)", ErrUnknownModel, name, Names())
	}
}
