package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/attolytics/attolytics/internal/config"
	"github.com/attolytics/attolytics/internal/executor"
	"github.com/attolytics/attolytics/internal/handlers"
	"github.com/attolytics/attolytics/internal/logging"
	"github.com/attolytics/attolytics/internal/ratelimit"
	"github.com/attolytics/attolytics/internal/schema"
	"github.com/attolytics/attolytics/internal/server"
	"github.com/attolytics/attolytics/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingestion server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("attolytics"))
	logging.SetDefault(logger)

	slog.Info("Starting ingestion gateway",
		slog.Int("port", cfg.Server.Port),
		slog.String("schema_path", cfg.Schema.Path),
		slog.String("log_level", cfg.Logging.Level),
	)

	// A schema load failure is fatal; the process must not serve with
	// a partially valid schema.
	sch, err := schema.LoadFile(cfg.Schema.Path)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	slog.Info("Schema loaded", slog.Int("tables", len(sch.Tables())))

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("parse database URL: %w", err)
	}
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		cancel()
		return fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		cancel()
		return fmt.Errorf("ping database: %w", err)
	}
	cancel()
	defer pool.Close()

	exec := executor.New(executor.WrapPool(pool), cfg.Database.AcquireTimeout)

	var limiter ratelimit.RateLimiter = &ratelimit.NoOpRateLimiter{}
	if cfg.Redis.Enabled && cfg.Ingestion.RateLimitEnabled {
		rl, err := ratelimit.NewRedisRateLimiter(
			cfg.Redis.URL,
			cfg.Ingestion.RateLimitRequests,
			cfg.Ingestion.RateLimitWindow,
		)
		if err != nil {
			slog.Warn("Failed to initialize rate limiter, continuing without",
				slog.String("error", err.Error()))
		} else {
			limiter = rl
			slog.Info("Rate limiting enabled",
				slog.Int("requests", cfg.Ingestion.RateLimitRequests),
				slog.Duration("window", cfg.Ingestion.RateLimitWindow))
		}
	}
	defer limiter.Close()

	svc := service.NewIngestService(sch, exec, limiter, logger)
	handler := handlers.NewEventsHandler(svc, cfg.Ingestion.MaxBodyBytes)
	router := server.NewRouter(handler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		slog.Info("Shutting down", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	slog.Info("Server stopped")
	return nil
}
