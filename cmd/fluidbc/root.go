package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/hyperengineering/fluidbc/internal/config"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var (
	configPath string
	jsonOutput bool
	dimFlag    int
)

var rootCmd = &cobra.Command{
	Use:          "fluidbc",
	Short:        "fluidbc - Boundary fluid pressure model host",
	Long:         "Select, configure and evaluate boundary fluid pressure models in 2D and 3D.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file path (overrides FLUIDBC_CONFIG_PATH)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output in JSON format")
	rootCmd.PersistentFlags().IntVar(&dimFlag, "dim", 0,
		"Spatial dimension, 2 or 3 (default from config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(paramsCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(runsCmd)
}

// loadConfig loads the configuration and installs the default logger.
// Logs go to w so that command output on stdout stays machine readable.
func loadConfig(w io.Writer) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	slog.SetDefault(newLogger(w, cfg.Log))
	slog.Debug("configuration loaded", "level", cfg.Log.Level, "format", cfg.Log.Format)
	return cfg, nil
}

func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(lc.Level)}
	if strings.EqualFold(lc.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
