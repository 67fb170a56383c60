package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"raizes/internal/config"
	"raizes/internal/http/server"
	"raizes/internal/infra/cache"
	"raizes/internal/infra/logging"
	"raizes/internal/keepalive"
	"raizes/internal/report"
	"raizes/internal/upstream"
)

const (
	shutdownTimeout = 5 * time.Second
	pingTimeout     = 10 * time.Second
)

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := ensureLogDir(cfg.Logger.File); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)

	renderer, err := report.FromConfig(cfg.Report)
	if err != nil {
		return err
	}

	rdb := cache.NewClient(cfg.Cache.RedisHost, cfg.Cache.ReportCacheDB)
	if rdb != nil {
		defer rdb.Close()
	}

	app := server.New(server.Deps{
		Config:   cfg,
		Redis:    rdb,
		Renderer: renderer,
		Upstream: upstream.New(cfg.Upstream.BaseURL, cfg.Upstream.Timeout),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info("Server starting",
		"addr", cfg.Server.Host+cfg.Server.Port,
		"environment", cfg.Environment,
		"engine", renderer.Engine(),
		"upstream", cfg.Upstream.BaseURL,
	)
	return run(ctx, app, cfg)
}

// run serves app and, when enabled, the keep-alive pinger until ctx is done,
// then shuts the server down gracefully.
func run(ctx context.Context, app *fiber.App, cfg config.Config) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	if cfg.KeepAlive.Enabled {
		pinger := keepalive.New(cfg.KeepAlive.URL, cfg.KeepAlive.Interval, pingTimeout)
		g.Go(func() error { return pinger.Run(ctx) })
	}

	g.Go(func() error {
		<-ctx.Done()
		logging.Warn("Shutdown signal received, closing server...")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(sctx); err != nil {
			logging.Error("Server forced to shutdown", "error", err)
			return err
		}
		logging.Info("Server stopped cleanly")
		return nil
	})

	return g.Wait()
}
