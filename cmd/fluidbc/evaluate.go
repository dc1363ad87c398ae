package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hyperengineering/fluidbc/internal/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	evaluateOutput    string
	evaluateNoJournal bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <batch-file>",
	Short: "Evaluate a batch of boundary points",
	Long: `Evaluate the selected boundary fluid pressure model over a YAML or JSON
batch file ("-" reads stdin). A batch lists segments of boundary points:

  dimension: 2
  parameters:
    boundary_fluid_pressure_model:
      plugin_name: density
  segments:
    - boundary_id: 1
      points:
        - {position: [0, 0], density: 3300}

A single segment may be given inline with top-level boundary_id and points.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVarP(&evaluateOutput, "output", "o", "json",
		"Output format: json or yaml")
	evaluateCmd.Flags().BoolVar(&evaluateNoJournal, "no-journal", false,
		"Do not record the run in the journal")
}

// batchFile is the on-disk batch format. The inline segment fields are a
// shorthand for a batch with one segment.
type batchFile struct {
	types.Batch `yaml:",inline"`
	BoundaryID  types.BoundaryID `yaml:"boundary_id"`
	Points      []types.Point    `yaml:"points"`
}

// readBatch decodes a batch document. JSON is accepted as YAML.
func readBatch(r io.Reader) (types.Batch, error) {
	var f batchFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return types.Batch{}, fmt.Errorf("batch file is empty")
		}
		return types.Batch{}, fmt.Errorf("parse batch: %w", err)
	}
	b := f.Batch
	if len(f.Points) > 0 {
		b.Segments = append([]types.Segment{{BoundaryID: f.BoundaryID, Points: f.Points}}, b.Segments...)
	}
	return b, nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	if evaluateOutput != "json" && evaluateOutput != "yaml" {
		return fmt.Errorf("invalid output format %q: must be json or yaml", evaluateOutput)
	}

	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open batch: %w", err)
		}
		defer f.Close()
		in = f
	}
	batch, err := readBatch(in)
	if err != nil {
		return err
	}
	if dimFlag != 0 {
		batch.Dimension = types.Dimension(dimFlag)
	}

	cfg, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	h, err := newHost(cfg, !evaluateNoJournal)
	if err != nil {
		return err
	}
	defer h.Close(context.Background())

	resp, err := h.runner.Evaluate(cmd.Context(), batch)
	if err != nil {
		return err
	}

	if evaluateOutput == "yaml" {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(resp); err != nil {
			return err
		}
		return enc.Close()
	}
	return printJSON(cmd.OutOrStdout(), resp)
}
