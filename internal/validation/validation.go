package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/hyperengineering/fluidbc/internal/types"
)

// MaxBatchPoints bounds the number of points accepted in a single batch.
const MaxBatchPoints = 1 << 20

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Collector accumulates validation errors without failing on first.
type Collector struct {
	errors []ValidationError
}

// Add appends a validation error to the collector if non-nil.
func (c *Collector) Add(err *ValidationError) {
	if err != nil {
		c.errors = append(c.errors, *err)
	}
}

// HasErrors returns true if the collector has accumulated any errors.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns all accumulated validation errors.
func (c *Collector) Errors() []ValidationError {
	return c.errors
}

// ValidateEnum returns an error if the value is not in the allowed list.
func ValidateEnum(field, value string, allowed []string) *ValidationError {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateRange returns an error if the value is outside [min, max] or NaN.
func ValidateRange(field string, value, min, max float64) *ValidationError {
	if math.IsNaN(value) || value < min || value > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be between %g and %g", min, max),
		}
	}
	return nil
}

// ValidateIntRange returns an error if the value is outside [min, max].
func ValidateIntRange(field string, value, min, max int64) *ValidationError {
	if value < min || value > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be between %d and %d", min, max),
		}
	}
	return nil
}

// ValidateCount returns an error if n is outside [min, max].
func ValidateCount(field string, n, min, max int) *ValidationError {
	if n < min || n > max {
		if min == max {
			return &ValidationError{
				Field:   field,
				Message: fmt.Sprintf("must have exactly %d entries", min),
			}
		}
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must have between %d and %d entries", min, max),
		}
	}
	return nil
}

// ValidateBatch checks an evaluation batch against the dimension it will run in.
// Every point needs a position with exactly dim components and finite values.
func ValidateBatch(b types.Batch, dim types.Dimension) []ValidationError {
	var c Collector

	if !dim.Valid() {
		c.Add(&ValidationError{Field: "dimension", Message: "must be 2 or 3"})
		return c.Errors()
	}
	if len(b.Segments) == 0 {
		c.Add(&ValidationError{Field: "segments", Message: "is required"})
	}
	if n := b.PointCount(); n > MaxBatchPoints {
		c.Add(&ValidationError{
			Field:   "segments",
			Message: fmt.Sprintf("exceeds maximum of %d points", MaxBatchPoints),
		})
		return c.Errors()
	}

	for i, seg := range b.Segments {
		for j, p := range seg.Points {
			prefix := fmt.Sprintf("segments[%d].points[%d]", i, j)
			c.Add(ValidateCount(prefix+".position", len(p.Position), int(dim), int(dim)))
			for k, x := range p.Position {
				c.Add(validateFinite(fmt.Sprintf("%s.position[%d]", prefix, k), x))
			}
			c.Add(validateFinite(prefix+".density", p.Density))
			if p.FluidDensity != nil {
				c.Add(validateFinite(prefix+".fluid_density", *p.FluidDensity))
			}
		}
	}

	return c.Errors()
}

func validateFinite(field string, v float64) *ValidationError {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ValidationError{Field: field, Message: "must be a finite number"}
	}
	return nil
}
