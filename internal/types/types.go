package types

import (
	"fmt"
	"time"
)

// BoundaryID tags one segment of the domain boundary. Its meaning belongs to
// the host; models only pass it through or key per-boundary behavior on it.
type BoundaryID uint32

// Dimension is a supported spatial dimension.
type Dimension int

const (
	Dim2 Dimension = 2
	Dim3 Dimension = 3
)

// Valid reports whether d is a supported dimension.
func (d Dimension) Valid() bool {
	return d == Dim2 || d == Dim3
}

// String returns "2d" or "3d".
func (d Dimension) String() string {
	return fmt.Sprintf("%dd", int(d))
}

// Point is one evaluation point on the wire: position plus the material
// outputs a boundary model may read.
type Point struct {
	Position     []float64 `json:"position" yaml:"position"`
	Temperature  float64   `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	Pressure     float64   `json:"pressure,omitempty" yaml:"pressure,omitempty"`
	Density      float64   `json:"density" yaml:"density"`
	FluidDensity *float64  `json:"fluid_density,omitempty" yaml:"fluid_density,omitempty"`
}

// Segment is a batch of points on a single boundary.
type Segment struct {
	BoundaryID BoundaryID `json:"boundary_id" yaml:"boundary_id"`
	Points     []Point    `json:"points" yaml:"points"`
}

// Batch is the document read by `fluidbc evaluate` and POST /api/v1/evaluate.
type Batch struct {
	Dimension  Dimension      `json:"dimension,omitempty" yaml:"dimension,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Segments   []Segment      `json:"segments" yaml:"segments"`
}

// SegmentResult holds one gradient per input point, in input order.
type SegmentResult struct {
	BoundaryID BoundaryID  `json:"boundary_id" yaml:"boundary_id"`
	Gradients  [][]float64 `json:"gradients" yaml:"gradients"`
}

// EvaluateResponse is returned from an evaluation run.
type EvaluateResponse struct {
	RunID    string          `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Model    string          `json:"model" yaml:"model"`
	Segments []SegmentResult `json:"segments" yaml:"segments"`
}

// ModelInfo describes one registered boundary model.
type ModelInfo struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Dimension   Dimension `json:"dimension"`
}

// ParameterInfo describes one declared parameter.
type ParameterInfo struct {
	Key           string `json:"key"`
	Default       string `json:"default"`
	Pattern       string `json:"pattern"`
	Documentation string `json:"documentation,omitempty"`
}

// RunRecord is a journal entry for one model run.
type RunRecord struct {
	ID         string    `json:"id"`
	Dimension  Dimension `json:"dimension"`
	Model      string    `json:"model"`
	Parameters string    `json:"parameters,omitempty"`
	Segments   int       `json:"segments"`
	Points     int       `json:"points"`
	CreatedAt  time.Time `json:"created_at"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string   `json:"status"`
	Version  string   `json:"version"`
	Models2D []string `json:"models_2d"`
	Models3D []string `json:"models_3d"`
}

// PointCount returns the total number of points across all segments.
func (b *Batch) PointCount() int {
	n := 0
	for _, s := range b.Segments {
		n += len(s.Points)
	}
	return n
}
