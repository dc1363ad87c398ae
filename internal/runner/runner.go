// Package runner turns evaluation batches into boundary model runs. It is the
// part of the host shared by the CLI and the HTTP API: it assembles the
// parameters of a run, picks the registry of the requested dimension and
// drives a simulator over the batch.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/trace"

	"github.com/hyperengineering/fluidbc/internal/fluidpressure"
	"github.com/hyperengineering/fluidbc/internal/gravity"
	"github.com/hyperengineering/fluidbc/internal/plugin"
	"github.com/hyperengineering/fluidbc/internal/prm"
	"github.com/hyperengineering/fluidbc/internal/simulator"
	"github.com/hyperengineering/fluidbc/internal/tensor"
	"github.com/hyperengineering/fluidbc/internal/types"
	"github.com/hyperengineering/fluidbc/internal/validation"
)

// EnvPrefix is the prefix of environment variables that override model
// parameters, e.g. FLUIDBC_PRM_BOUNDARY_FLUID_PRESSURE_MODEL__PLUGIN_NAME.
const EnvPrefix = "FLUIDBC_PRM"

var (
	// ErrUnsupportedDimension is returned for dimensions other than 2 and 3.
	ErrUnsupportedDimension = errors.New("unsupported dimension")

	// ErrJournalDisabled is returned by Runs when no journal is attached.
	ErrJournalDisabled = errors.New("run journal disabled")
)

// BatchError reports a batch that failed validation.
type BatchError struct {
	Errors []validation.ValidationError
}

func (e *BatchError) Error() string {
	if len(e.Errors) == 0 {
		return "invalid batch"
	}
	return fmt.Sprintf("invalid batch: %s (%d problems)", e.Errors[0].Error(), len(e.Errors))
}

// EvaluationError wraps the errors a model returned while evaluating.
type EvaluationError struct {
	Err error
}

func (e *EvaluationError) Error() string { return "evaluation failed: " + e.Err.Error() }
func (e *EvaluationError) Unwrap() error { return e.Err }

// Journal stores and lists runs. Implemented by journal.Store.
type Journal interface {
	simulator.Recorder
	List(ctx context.Context, limit int) ([]types.RunRecord, error)
	Get(ctx context.Context, id string) (types.RunRecord, error)
}

// Config configures a Runner.
type Config struct {
	// Dimension is used for batches that do not name one.
	Dimension types.Dimension

	// ParameterFile is read into every run before the batch parameters.
	ParameterFile string

	Gravity          string
	GravityMagnitude float64
	Workers          int

	// Tracer and Journal are optional.
	Tracer  trace.Tracer
	Journal Journal
}

// Runner evaluates batches against a fixed set of registered models.
// It is safe for concurrent use; every run gets its own parameters and
// model instance.
type Runner struct {
	registries *fluidpressure.Registries
	cfg        Config
}

// New creates a runner. The registries are sealed: every model must be
// registered before the first run.
func New(rs *fluidpressure.Registries, cfg Config) (*Runner, error) {
	if cfg.Dimension == 0 {
		cfg.Dimension = types.Dim2
	}
	if !cfg.Dimension.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDimension, cfg.Dimension)
	}
	if cfg.Gravity == "" {
		cfg.Gravity = "vertical"
	}
	if _, err := gravity.New[tensor.Vec2](cfg.Gravity, cfg.GravityMagnitude); err != nil {
		return nil, err
	}
	rs.Seal()
	r := &Runner{registries: rs, cfg: cfg}
	if err := r.Check(cfg.Dimension); err != nil {
		return nil, fmt.Errorf("check model selection: %w", err)
	}
	return r, nil
}

// Check sets up the model that the parameter file and environment select in
// dim, without evaluating anything. Unknown names and malformed model
// options are reported here instead of on the first run.
func (r *Runner) Check(dim types.Dimension) error {
	dim = r.resolve(dim)
	switch dim {
	case types.Dim2:
		return check(r, r.registries.Dim2)
	case types.Dim3:
		return check(r, r.registries.Dim3)
	}
	return fmt.Errorf("%w: %d", ErrUnsupportedDimension, dim)
}

// DefaultDimension returns the dimension of batches that name none.
func (r *Runner) DefaultDimension() types.Dimension { return r.cfg.Dimension }

// Models lists the models registered for dim.
func (r *Runner) Models(dim types.Dimension) ([]types.ModelInfo, error) {
	dim = r.resolve(dim)
	switch dim {
	case types.Dim2:
		return models(r.registries.Dim2.Entries(), dim), nil
	case types.Dim3:
		return models(r.registries.Dim3.Entries(), dim), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedDimension, dim)
}

func models[T any](entries []plugin.Entry[T], dim types.Dimension) []types.ModelInfo {
	out := make([]types.ModelInfo, len(entries))
	for i, e := range entries {
		out[i] = types.ModelInfo{Name: e.Name, Description: e.Description, Dimension: dim}
	}
	return out
}

// Params returns the parameters a run in dim would see without batch
// overrides: every declaration plus the parameter file and environment.
func (r *Runner) Params(dim types.Dimension) (*prm.Handler, error) {
	dim = r.resolve(dim)
	switch dim {
	case types.Dim2:
		return r.params(r.registries.Dim2, nil)
	case types.Dim3:
		return r.params(r.registries.Dim3, nil)
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedDimension, dim)
}

// Parameters describes every declared parameter of dim.
func (r *Runner) Parameters(dim types.Dimension) ([]types.ParameterInfo, error) {
	h, err := r.Params(dim)
	if err != nil {
		return nil, err
	}
	entries := h.Entries()
	out := make([]types.ParameterInfo, len(entries))
	for i, e := range entries {
		out[i] = types.ParameterInfo{
			Key:           e.Key,
			Default:       e.Default,
			Pattern:       e.Pattern.Description(),
			Documentation: e.Documentation,
		}
	}
	return out, nil
}

// WriteSchema writes the documented parameter schema of dim as YAML.
func (r *Runner) WriteSchema(dim types.Dimension, w io.Writer) error {
	h, err := r.Params(dim)
	if err != nil {
		return err
	}
	return h.WriteSchema(w)
}

// Evaluate validates the batch and runs the selected model over it.
func (r *Runner) Evaluate(ctx context.Context, b types.Batch) (types.EvaluateResponse, error) {
	dim := r.resolve(b.Dimension)
	if errs := validation.ValidateBatch(b, dim); len(errs) > 0 {
		return types.EvaluateResponse{}, &BatchError{Errors: errs}
	}

	switch dim {
	case types.Dim2:
		return run(ctx, r, r.registries.Dim2, b)
	default:
		return run(ctx, r, r.registries.Dim3, b)
	}
}

// Runs lists the most recent journal entries.
func (r *Runner) Runs(ctx context.Context, limit int) ([]types.RunRecord, error) {
	if r.cfg.Journal == nil {
		return nil, ErrJournalDisabled
	}
	return r.cfg.Journal.List(ctx, limit)
}

// LookupRun returns one journal entry.
func (r *Runner) LookupRun(ctx context.Context, id string) (types.RunRecord, error) {
	if r.cfg.Journal == nil {
		return types.RunRecord{}, ErrJournalDisabled
	}
	return r.cfg.Journal.Get(ctx, id)
}

func (r *Runner) resolve(dim types.Dimension) types.Dimension {
	if dim == 0 {
		return r.cfg.Dimension
	}
	return dim
}

func (r *Runner) params(reg interface{ DeclareAll(*prm.Handler) error }, overrides map[string]any) (*prm.Handler, error) {
	h := prm.New(prm.WithEnvPrefix(EnvPrefix))
	if err := reg.DeclareAll(h); err != nil {
		return nil, err
	}
	if r.cfg.ParameterFile != "" {
		if err := h.ReadFile(r.cfg.ParameterFile); err != nil {
			return nil, err
		}
	}
	if err := h.MergeMap(overrides); err != nil {
		return nil, err
	}
	return h, nil
}

// gravityOnly is the simulator context of a dry setup.
type gravityOnly[V tensor.Vector] struct{ g gravity.Model[V] }

func (s gravityOnly[V]) Gravity() gravity.Model[V] { return s.g }

func check[V tensor.Vector](r *Runner, reg *plugin.Registry[fluidpressure.Interface[V]]) error {
	h, err := r.params(reg, nil)
	if err != nil {
		return err
	}
	g, err := gravity.New[V](r.cfg.Gravity, r.cfg.GravityMagnitude)
	if err != nil {
		return err
	}
	_, err = fluidpressure.Setup[V](reg, h, gravityOnly[V]{g: g})
	return err
}

func run[V tensor.Vector](ctx context.Context, r *Runner, reg *plugin.Registry[fluidpressure.Interface[V]], b types.Batch) (types.EvaluateResponse, error) {
	h, err := r.params(reg, b.Parameters)
	if err != nil {
		return types.EvaluateResponse{}, err
	}
	g, err := gravity.New[V](r.cfg.Gravity, r.cfg.GravityMagnitude)
	if err != nil {
		return types.EvaluateResponse{}, err
	}

	opts := simulator.Options{Workers: r.cfg.Workers, Tracer: r.cfg.Tracer}
	if r.cfg.Journal != nil {
		opts.Journal = r.cfg.Journal
	}
	sim := simulator.New(reg, h, g, opts)
	if err := sim.Start(); err != nil {
		return types.EvaluateResponse{}, err
	}

	resp, err := sim.Run(ctx, b.Segments)
	if err != nil {
		return types.EvaluateResponse{}, &EvaluationError{Err: err}
	}
	return resp, nil
}
