package main

import (
	"context"

	"github.com/hyperengineering/fluidbc/internal/types"
	"github.com/spf13/cobra"
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Print the declared model parameters",
	Long: `Print every parameter the registered models declare with its default,
accepted pattern and documentation. The YAML output can be used as a starting
parameter file.`,
	Args: cobra.NoArgs,
	RunE: runParams,
}

func runParams(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	h, err := newHost(cfg, false)
	if err != nil {
		return err
	}
	defer h.Close(context.Background())

	dim := types.Dimension(dimFlag)
	if jsonOutput {
		params, err := h.runner.Parameters(dim)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"parameters": params,
			"total":      len(params),
		})
	}
	return h.runner.WriteSchema(dim, cmd.OutOrStdout())
}
