package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/hyperengineering/fluidbc/internal/config"
	"github.com/hyperengineering/fluidbc/internal/fluidpressure"
	"github.com/hyperengineering/fluidbc/internal/fluidpressure/builtin"
	"github.com/hyperengineering/fluidbc/internal/journal"
	"github.com/hyperengineering/fluidbc/internal/runner"
	"github.com/hyperengineering/fluidbc/internal/tracing"
	"github.com/hyperengineering/fluidbc/internal/types"
)

// initPlugins registers all built-in boundary fluid pressure models in both
// dimensions. Third-party models register here too, before the registries
// are sealed by the runner.
func initPlugins() (*fluidpressure.Registries, error) {
	return builtin.NewRegistries()
}

// host is the runtime every command builds from the configuration.
type host struct {
	runner  *runner.Runner
	journal *journal.Store
	tracing *tracing.Provider
}

// newHost wires registries, journal and tracing into a runner. The journal
// is opened only when withJournal is set and a path is configured.
func newHost(cfg *config.Config, withJournal bool) (*host, error) {
	rs, err := initPlugins()
	if err != nil {
		return nil, fmt.Errorf("register models: %w", err)
	}

	tp, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	h := &host{tracing: tp}

	rc := runner.Config{
		Dimension:        types.Dimension(cfg.Simulation.Dimension),
		ParameterFile:    cfg.Simulation.ParameterFile,
		Gravity:          cfg.Simulation.Gravity,
		GravityMagnitude: cfg.Simulation.GravityMagnitude,
		Workers:          cfg.Simulation.Workers,
		Tracer:           tp.Tracer(),
	}
	if withJournal && cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			_ = h.Close(context.Background())
			return nil, err
		}
		slog.Debug("journal initialized", "path", cfg.Journal.Path)
		h.journal = j
		rc.Journal = j
	}

	r, err := runner.New(rs, rc)
	if err != nil {
		_ = h.Close(context.Background())
		return nil, err
	}
	h.runner = r
	return h, nil
}

// Close flushes spans and closes the journal.
func (h *host) Close(ctx context.Context) error {
	var errs []error
	if h.tracing != nil {
		if err := h.tracing.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracing shutdown: %w", err))
		}
	}
	if h.journal != nil {
		if err := h.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("journal close: %w", err))
		}
	}
	return errors.Join(errs...)
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}
