package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrWong99/voxdrill/internal/app"
	"github.com/MrWong99/voxdrill/internal/config"
	"github.com/MrWong99/voxdrill/internal/observe"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the practice HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx, cmd.OutOrStdout())
		},
	}
}

func (c *cli) serve(ctx context.Context, out io.Writer) error {
	serviceVersion := c.cfg.Telemetry.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}
	tel, err := observe.Setup(ctx, observe.ProviderConfig{
		ServiceName:    c.cfg.Telemetry.ServiceName,
		ServiceVersion: serviceVersion,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	metrics, err := observe.NewMetrics(tel.MeterProvider)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	opts := []app.Option{
		app.WithMetrics(metrics),
		app.WithMetricsHandler(tel.MetricsHandler()),
	}
	if c.configFromFile {
		opts = append(opts, app.WithConfigWatch(c.configPath))
	}
	application, err := c.newApp(ctx, opts...)
	if err != nil {
		return err
	}

	printStartupSummary(out, c.cfg, application.Catalog().Len())
	slog.Info("server ready, press Ctrl+C to shut down")

	runErr := application.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "error", err)
	}
	slog.Info("goodbye")
	return runErr
}

func printStartupSummary(out io.Writer, cfg *config.Config, questions int) {
	auth := "X-Learner-ID header"
	if cfg.Server.JWTSecret != "" {
		auth = "JWT bearer"
	}
	store := string(cfg.Store.Backend)
	if cfg.Store.FallbackToMemory {
		store += " (+memory fallback)"
	}
	fmt.Fprintln(out, "╔═══════════════════════════════════════╗")
	fmt.Fprintln(out, "║        voxdrill startup summary       ║")
	fmt.Fprintln(out, "╠═══════════════════════════════════════╣")
	fmt.Fprintf(out, "║  Listen addr : %-22s ║\n", cfg.Server.ListenAddr)
	fmt.Fprintf(out, "║  Store       : %-22s ║\n", store)
	fmt.Fprintf(out, "║  Questions   : %-22d ║\n", questions)
	fmt.Fprintf(out, "║  Phonetic    : %-22t ║\n", cfg.Evaluation.Phonetic)
	fmt.Fprintf(out, "║  Auth        : %-22s ║\n", auth)
	fmt.Fprintln(out, "╚═══════════════════════════════════════╝")
}
