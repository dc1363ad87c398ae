package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hyperengineering/fluidbc/internal/api"
	"github.com/hyperengineering/fluidbc/internal/config"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the evaluation API over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// Signal handling
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.Info("logger initialized", "level", cfg.Log.Level)

	addr := net.JoinHostPort("", strconv.Itoa(cfg.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return serve(ctx, cfg, ln)
}

// serve runs the API on ln until ctx is done, then drains in-flight requests
// within the configured shutdown timeout.
func serve(ctx context.Context, cfg *config.Config, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h, err := newHost(cfg, true)
	if err != nil {
		ln.Close()
		return err
	}
	slog.Info("runner initialized",
		"dimension", cfg.Simulation.Dimension,
		"gravity", cfg.Simulation.Gravity,
		"journal", cfg.Journal.Path,
		"tracing", h.tracing.Enabled(),
	)

	router := api.NewRouter(api.NewHandler(h.runner, cfg.Auth.APIKey, Version))
	slog.Info("router initialized", "auth", cfg.Auth.APIKey != "")

	srv := &http.Server{
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "address", ln.Addr().String())
		// ErrServerClosed is the expected error when Shutdown() is called gracefully.
		// Any other error indicates an actual server failure that should trigger shutdown.
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			serveErr <- err
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown initiated")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	// Stop HTTP server (drains in-flight requests)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Flush spans and close the journal
	if err := h.Close(shutdownCtx); err != nil {
		slog.Error("host close error", "error", err)
	}

	slog.Info("shutdown complete")

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}
