// Package tensor provides the fixed-size vector types boundary models work in.
//
// Dimension is a compile-time axis: code that needs a vector is written once
// against the Vector constraint and instantiated separately for Vec2 and Vec3.
// There is no runtime branching on dimension inside a single type.
package tensor

import (
	"fmt"
	"math"
)

// Vec2 is a rank-1 tensor in two space dimensions.
type Vec2 [2]float64

// Vec3 is a rank-1 tensor in three space dimensions.
type Vec3 [3]float64

// Vector is satisfied by every supported spatial vector type.
type Vector interface {
	~[2]float64 | ~[3]float64
}

// Dim returns the number of components of V.
func Dim[V Vector]() int {
	var v V
	return len(v)
}

// Scale returns s*v.
func Scale[V Vector](v V, s float64) V {
	var out V
	for i := 0; i < len(v); i++ {
		out[i] = v[i] * s
	}
	return out
}

// Add returns a+b.
func Add[V Vector](a, b V) V {
	var out V
	for i := 0; i < len(a); i++ {
		out[i] = a[i] + b[i]
	}
	return out
}

// Dot returns the scalar product of a and b.
func Dot[V Vector](a, b V) float64 {
	var sum float64
	for i := 0; i < len(a); i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm returns the Euclidean length of v.
func Norm[V Vector](v V) float64 {
	return math.Sqrt(Dot(v, v))
}

// Unit returns the n-th unit vector, scaled by s.
// It panics if n is out of range for V.
func Unit[V Vector](n int, s float64) V {
	var out V
	out[n] = s
	return out
}

// FromSlice copies components into a V. The slice must hold exactly Dim[V]() values.
func FromSlice[V Vector](components []float64) (V, error) {
	var out V
	if len(components) != len(out) {
		return out, fmt.Errorf("expected %d components, got %d", len(out), len(components))
	}
	for i := range components {
		out[i] = components[i]
	}
	return out, nil
}

// Slice returns the components of v as a new slice.
func Slice[V Vector](v V) []float64 {
	out := make([]float64, len(v))
	for i := range out {
		out[i] = v[i]
	}
	return out
}
