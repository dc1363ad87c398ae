// Package simulator is the host that drives a boundary fluid pressure model
// through one run: it sets the selected model up once and evaluates boundary
// segments concurrently.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/hyperengineering/fluidbc/internal/fluidpressure"
	"github.com/hyperengineering/fluidbc/internal/gravity"
	"github.com/hyperengineering/fluidbc/internal/plugin"
	"github.com/hyperengineering/fluidbc/internal/prm"
	"github.com/hyperengineering/fluidbc/internal/tensor"
	"github.com/hyperengineering/fluidbc/internal/types"
)

const tracerName = "github.com/hyperengineering/fluidbc/internal/simulator"

// Span attribute keys.
const (
	AttrBoundaryID = "boundary.id"
	AttrPoints     = "boundary.points"
	AttrModel      = "model.name"
	AttrDimension  = "model.dimension"
	AttrSegments   = "run.segments"
)

// Recorder stores a journal entry for each completed run.
// Implemented by journal.Store.
type Recorder interface {
	Record(ctx context.Context, run types.RunRecord) (types.RunRecord, error)
}

// Options configures a Simulator. The zero value is usable.
type Options struct {
	// Workers bounds the number of segments evaluated at once.
	// Zero or less means runtime.GOMAXPROCS(0).
	Workers int

	// Tracer receives one span per run and per segment.
	// Nil means the global otel tracer provider.
	Tracer trace.Tracer

	// Journal, if set, records every run.
	Journal Recorder
}

// Simulator owns the single active boundary model of a run in dimension V.
type Simulator[V tensor.Vector] struct {
	reg     *plugin.Registry[fluidpressure.Interface[V]]
	params  *prm.Handler
	gravity gravity.Model[V]
	workers int
	tracer  trace.Tracer
	journal Recorder

	once     sync.Once
	model    *fluidpressure.Model[V]
	startErr error
}

// Result holds the gradients computed for one segment, in point order.
type Result[V tensor.Vector] struct {
	BoundaryID types.BoundaryID
	Gradients  []V
}

// New creates a simulator that selects its model from reg using the
// parameters in h. Parameters must already be declared and read.
func New[V tensor.Vector](reg *plugin.Registry[fluidpressure.Interface[V]], h *prm.Handler, g gravity.Model[V], opts Options) *Simulator[V] {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Simulator[V]{
		reg:     reg,
		params:  h,
		gravity: g,
		workers: workers,
		tracer:  tracer,
		journal: opts.Journal,
	}
}

// Gravity returns the gravity model handed to boundary models.
func (s *Simulator[V]) Gravity() gravity.Model[V] { return s.gravity }

// Dimension returns the spatial dimension of the run.
func (s *Simulator[V]) Dimension() types.Dimension {
	return types.Dimension(tensor.Dim[V]())
}

// Start sets up the selected model. Only the first call does any work; later
// calls return its result.
func (s *Simulator[V]) Start() error {
	s.once.Do(func() {
		s.model, s.startErr = fluidpressure.Setup[V](s.reg, s.params, s)
		if s.startErr != nil {
			return
		}
		slog.Info("boundary model ready",
			"component", "simulator",
			"model", s.model.Name(),
			"dimension", s.Dimension().String(),
		)
		for _, key := range s.params.Unrecognized() {
			slog.Warn("parameter not declared by any component",
				"component", "simulator",
				"key", key,
			)
		}
	})
	return s.startErr
}

// Model returns the active model, or nil before a successful Start.
func (s *Simulator[V]) Model() *fluidpressure.Model[V] {
	if s.Start() != nil {
		return nil
	}
	return s.model
}

// EvaluateSegments computes the gradients of every segment. Segments run
// concurrently; results keep the input order. Errors of individual segments
// are joined, and the results of failed segments are nil.
func (s *Simulator[V]) EvaluateSegments(ctx context.Context, segments []types.Segment) ([]Result[V], error) {
	if err := s.Start(); err != nil {
		return nil, err
	}

	results := make([]Result[V], len(segments))
	errs := make([]error, len(segments))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := range segments {
		g.Go(func() error {
			results[i].BoundaryID = segments[i].BoundaryID
			results[i].Gradients, errs[i] = s.evaluateSegment(ctx, segments[i])
			if errs[i] != nil {
				errs[i] = fmt.Errorf("segment %d (boundary %d): %w", i, segments[i].BoundaryID, errs[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}

func (s *Simulator[V]) evaluateSegment(ctx context.Context, seg types.Segment) ([]V, error) {
	_, span := s.tracer.Start(ctx, "simulator.segment",
		trace.WithAttributes(
			attribute.Int64(AttrBoundaryID, int64(seg.BoundaryID)),
			attribute.Int(AttrPoints, len(seg.Points)),
			attribute.String(AttrModel, s.model.Name()),
		),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "cancelled")
		return nil, err
	}

	in, out, err := Materials[V](seg)
	if err == nil {
		result := make([]V, len(seg.Points))
		if err = s.model.FluidPressureGradient(seg.BoundaryID, in, out, result); err == nil {
			return result, nil
		}
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return nil, err
}

// Run evaluates all segments and records the run in the journal.
// A failed journal write is logged and leaves the run ID empty.
func (s *Simulator[V]) Run(ctx context.Context, segments []types.Segment) (types.EvaluateResponse, error) {
	ctx, span := s.tracer.Start(ctx, "simulator.run",
		trace.WithAttributes(
			attribute.Int(AttrSegments, len(segments)),
			attribute.String(AttrDimension, s.Dimension().String()),
		),
	)
	defer span.End()

	start := time.Now()
	results, err := s.EvaluateSegments(ctx, segments)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation failed")
		return types.EvaluateResponse{}, err
	}

	resp := types.EvaluateResponse{
		Model:    s.model.Name(),
		Segments: make([]types.SegmentResult, len(results)),
	}
	points := 0
	for i, r := range results {
		grads := make([][]float64, len(r.Gradients))
		for j, v := range r.Gradients {
			grads[j] = tensor.Slice(v)
		}
		resp.Segments[i] = types.SegmentResult{BoundaryID: r.BoundaryID, Gradients: grads}
		points += len(grads)
	}

	slog.Debug("run evaluated",
		"component", "simulator",
		"model", resp.Model,
		"segments", len(segments),
		"points", points,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if s.journal != nil {
		rec, err := s.journal.Record(ctx, types.RunRecord{
			Dimension:  s.Dimension(),
			Model:      resp.Model,
			Parameters: s.parameterDump(),
			Segments:   len(segments),
			Points:     points,
		})
		if err != nil {
			slog.Warn("failed to record run",
				"component", "simulator",
				"error", err,
			)
		} else {
			resp.RunID = rec.ID
		}
	}
	return resp, nil
}

func (s *Simulator[V]) parameterDump() string {
	b, err := yaml.Marshal(s.params.Settings())
	if err != nil {
		return ""
	}
	return string(b)
}

var _ fluidpressure.SimulatorAccess[tensor.Vec2] = (*Simulator[tensor.Vec2])(nil)
