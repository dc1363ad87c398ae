package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperengineering/fluidbc/internal/runner"
	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the run journal",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run with its parameters",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 0, "Maximum number of runs (default 50)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
}

// journalHost builds a host that must have a journal.
func journalHost(cmd *cobra.Command) (*host, error) {
	cfg, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	if cfg.Journal.Path == "" {
		return nil, runner.ErrJournalDisabled
	}
	return newHost(cfg, true)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	h, err := journalHost(cmd)
	if err != nil {
		return err
	}
	defer h.Close(context.Background())

	runs, err := h.runner.Runs(cmd.Context(), runsLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"runs":  runs,
			"total": len(runs),
		})
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tMODEL\tDIM\tSEGMENTS\tPOINTS\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID,
			r.Model,
			r.Dimension,
			r.Segments,
			r.Points,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	return w.Flush()
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	h, err := journalHost(cmd)
	if err != nil {
		return err
	}
	defer h.Close(context.Background())

	run, err := h.runner.LookupRun(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("run %q: %w", args[0], err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), run)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:         %s\n", run.ID)
	fmt.Fprintf(out, "Model:      %s\n", run.Model)
	fmt.Fprintf(out, "Dimension:  %s\n", run.Dimension)
	fmt.Fprintf(out, "Segments:   %d\n", run.Segments)
	fmt.Fprintf(out, "Points:     %d\n", run.Points)
	fmt.Fprintf(out, "Created:    %s\n", run.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	if run.Parameters != "" {
		fmt.Fprintf(out, "Parameters:\n%s", indent(run.Parameters, "  "))
	}
	return nil
}

func indent(s, prefix string) string {
	var b strings.Builder
	for _, line := range strings.SplitAfter(s, "\n") {
		if line != "" {
			b.WriteString(prefix + line)
		}
	}
	return b.String()
}
