package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wardops/wardops/internal/config"
	"github.com/wardops/wardops/internal/domain/analytics"
	"github.com/wardops/wardops/internal/domain/hospital"
	"github.com/wardops/wardops/internal/platform/db"
	"github.com/wardops/wardops/internal/platform/metrics"
	"github.com/wardops/wardops/internal/platform/middleware"
	"github.com/wardops/wardops/internal/platform/storage"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wardops-server",
		Short: "Hospital Operations Dashboard API Server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(analyzeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <analysis-id>",
		Short: "Run one analysis and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			registry, cleanup, err := buildRegistry(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			result := registry.Run(ctx, args[0], analytics.Params{})
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

// buildRegistry wires the data source, storage, and analyzers. The returned
// cleanup closes the database pool when one was opened.
func buildRegistry(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*analytics.Registry, func(), error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		if cfg.DataSource == "live" {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		logger.Warn().Err(err).Msg("database unavailable, continuing without a pool")
		pool = nil
	}
	cleanup := func() {
		if pool != nil {
			pool.Close()
		}
	}

	src, err := hospital.SelectSource(ctx, hospital.SelectSourceConfig{
		Mode:          cfg.DataSource,
		Pool:          pool,
		SyntheticSeed: cfg.SyntheticSeed,
	}, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	store, err := storage.New(cfg.ResultDir, cfg.ModelDir, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	m := metrics.New()
	analyzer := analytics.New(src, store, logger)
	predictor := analytics.NewLOSPredictor(analyzer, store.ModelDir())
	registry := analytics.NewRegistry(analyzer, predictor, m, logger)
	return registry, cleanup, nil
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		if cfg.DataSource == "live" {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		logger.Warn().Err(err).Msg("database unavailable, analyses will use the synthetic source")
		pool = nil
	}
	if pool != nil {
		defer pool.Close()
		logger.Info().Msg("connected to database")
	}

	src, err := hospital.SelectSource(ctx, hospital.SelectSourceConfig{
		Mode:          cfg.DataSource,
		Pool:          pool,
		SyntheticSeed: cfg.SyntheticSeed,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to select data source")
	}

	store, err := storage.New(cfg.ResultDir, cfg.ModelDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise result storage")
	}

	m := metrics.New()
	analyzer := analytics.New(src, store, logger)
	predictor := analytics.NewLOSPredictor(analyzer, store.ModelDir())
	registry := analytics.NewRegistry(analyzer, predictor, m, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health check and Prometheus metrics live outside the versioned API.
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":      "ok",
			"version":     "0.1.0",
			"data_source": src.Name(),
		})
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	apiV1 := e.Group("/api/v1")
	handler := analytics.NewHandler(registry, predictor, store)
	handler.RegisterRoutes(apiV1)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("data_source", src.Name()).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	return nil
}
