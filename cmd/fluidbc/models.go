package main

import (
	"context"
	"fmt"

	"github.com/hyperengineering/fluidbc/internal/types"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List registered boundary fluid pressure models",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	h, err := newHost(cfg, false)
	if err != nil {
		return err
	}
	defer h.Close(context.Background())

	models, err := h.runner.Models(types.Dimension(dimFlag))
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"models": models,
			"total":  len(models),
		})
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "NAME\tDIM\tDESCRIPTION")
	for _, m := range models {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.Name, m.Dimension, m.Description)
	}
	return w.Flush()
}
