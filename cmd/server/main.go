package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/liquidaciones/internal/config"
	"github.com/JonMunkholm/liquidaciones/internal/core"
	"github.com/JonMunkholm/liquidaciones/internal/database"
	"github.com/JonMunkholm/liquidaciones/internal/logging"
	"github.com/JonMunkholm/liquidaciones/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"database", cfg.Database.Enabled(),
		"report_ttl", cfg.Report.TTL.String(),
		"max_concurrent_runs", cfg.Report.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	var opts []core.Option
	if cfg.Database.Enabled() {
		pool, err := database.Connect(context.Background(), cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		opts = append(opts, core.WithDatabase(pool))
	}

	service, err := core.NewService(cfg, opts...)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	slog.Info("tables registered", "count", core.TableCount())

	server := web.NewServer(service, cfg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartReportSweeper(jobCtx, cfg.Report.SweepInterval)

	stop, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	drain := func(ctx context.Context) error {
		cancelJobs()
		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for reconciliations to complete", "active", status.Active)
			return service.WaitForRuns(ctx)
		}
		return nil
	}

	if err := serve(stop.Done(), server, drain, cfg.Server.ShutdownTimeout); err != nil {
		slog.Error("server error", "error", err)
		cancelJobs()
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// lifecycle is the part of web.Server that serve drives.
type lifecycle interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// serve runs srv until stop is closed, then drains in-flight work and shuts
// srv down. It returns only after the shutdown sequence has finished.
func serve(stop <-chan struct{}, srv lifecycle, drain func(context.Context) error, timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-stop

		slog.Info("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := drain(ctx); err != nil {
			slog.Warn("reconciliations did not complete in time", "error", err)
		}
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
