package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"badgeissuer/internal/platform/config"
	"badgeissuer/internal/platform/httpserver"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Run: func(cmd *cobra.Command, _ []string) {
			log := commonRun()
			if err := serveRun(cmd.Context(), cfg, log); err != nil {
				log.Error(err.Error())
				os.Exit(1)
			}
		},
	}
}

func serveRun(parent context.Context, cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	log.Info("starting",
		"addr", cfg.Addr,
		"registry_backend", cfg.RegistryBackend,
		"component_backend", cfg.ComponentBackend,
		"kafka", cfg.KafkaEnabled(),
		"tracing", a.tracing.Enabled(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, httpserver.New(cfg.Addr, a.router), cfg.ShutdownTimeout, log)
	})
	if a.auditWorker != nil {
		g.Go(func() error {
			if err := a.auditWorker.Run(gctx); err != nil && gctx.Err() == nil {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
