package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tablebook/internal/access"
	"tablebook/internal/api"
	"tablebook/internal/config"
	"tablebook/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with health, metrics, layout reload and backups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	logger := a.logger

	if a.rdb != nil {
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}

	// Initial load + hot reload of the layout.
	if err := config.WatchLayout(ctx, a.layout, cfg.LayoutWatchInterval(), func(layout *config.Layout) {
		if _, err := a.applyLayout(ctx, layout); err != nil {
			logger.Error().Err(err).Msg("failed to apply layout")
		}
	}, func(err error) {
		logger.Error().Err(err).Msg("layout reload rejected")
	}); err != nil {
		return fmt.Errorf("load layout: %w", err)
	}

	go startHealthServer(ctx, cfg.HealthCheckPort(), a, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.PrometheusPort(), &logger)
	}

	if cfg.Backup.Enabled {
		go startBackupLoop(ctx, a, &logger)
	}

	server := api.NewHTTPServer(api.Options{
		Port:            cfg.HTTPPort(),
		APIKey:          cfg.HTTP.APIKey,
		RateLimitRPS:    cfg.HTTP.RateLimitRPS,
		RateLimitBurst:  cfg.HTTP.RateLimitBurst,
		ReadTimeout:     cfg.ReadTimeout(),
		WriteTimeout:    cfg.WriteTimeout(),
		DefaultDuration: cfg.DefaultDuration(),
		SlotStep:        cfg.SlotStep(),
	}, api.Deps{
		Engine: a.engine,
		Ledger: a.ledger,
		Slots:  a.finder,
		Access: access.NewService(a.db, cfg.OverrideRequiresStaff(), logger),
		Floor:  a.db,
		Ready:  a.db,
	}, &logger)

	logger.Info().Int("port", cfg.HTTPPort()).Msg("tablebook started")
	return server.Start(ctx)
}

func startBackupLoop(ctx context.Context, a *app, logger *zerolog.Logger) {
	dir := a.cfg.BackupPath()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create backup directory")
		return
	}

	// Run first backup after a short delay
	select {
	case <-time.After(1 * time.Minute):
		runBackupTask(ctx, a, dir, logger)
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(a.cfg.BackupInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runBackupTask(ctx, a, dir, logger)
		case <-ctx.Done():
			return
		}
	}
}

func runBackupTask(ctx context.Context, a *app, dir string, logger *zerolog.Logger) {
	dest := filepath.Join(dir, fmt.Sprintf("tablebook_%s.db", time.Now().Format("20060102_150405")))

	logger.Info().Str("path", dest).Msg("starting database backup")
	if err := a.db.Backup(ctx, dest); err != nil {
		logger.Error().Err(err).Msg("backup failed")
	} else {
		logger.Info().Msg("backup completed successfully")
	}

	deleted, err := a.db.CleanupBackups(dir, a.cfg.BackupRetention())
	if err != nil {
		logger.Error().Err(err).Msg("backup cleanup failed")
	} else if deleted > 0 {
		logger.Info().Int("deleted", deleted).Msg("cleaned up old backups")
	}
}

func startHealthServer(ctx context.Context, port int, a *app, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := a.db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if a.rdb != nil {
			if err := a.rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	serveUntilDone(ctx, &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}, "health", logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serveUntilDone(ctx, &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}, "metrics", logger)
}

func serveUntilDone(ctx context.Context, srv *http.Server, name string, logger *zerolog.Logger) {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Str("server", name).Msg("server error")
	}
}
