// Package main implements the Gumroad webhook subscriber-list service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "net/http/pprof"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mbocharov/gumhook/internal/app"
	"github.com/mbocharov/gumhook/internal/config"
	"github.com/mbocharov/gumhook/pkg/bootstrap"
	"github.com/mbocharov/gumhook/pkg/config/configloader"
	"github.com/mbocharov/gumhook/pkg/messaging"
	natsclient "github.com/mbocharov/gumhook/pkg/nats"
	"golang.org/x/sync/errgroup"
)

const serviceName = "gumhook"

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run initializes the application and starts the HTTP and pprof servers.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	dbPool, err := setupDbPool(ctx, cfg)
	if err != nil {
		return err
	}
	if dbPool != nil {
		defer dbPool.Close()
		logger.Info("Successfully connected to the database!")
	}

	publisher, closePublisher, err := setupPublisher(cfg)
	if err != nil {
		return err
	}
	if closePublisher != nil {
		defer closePublisher()
		logger.Info("Successfully connected to NATS!")
	}

	deps, err := app.SetupDependencies(cfg, dbPool, publisher, logger)
	if err != nil {
		return fmt.Errorf("failed to set up dependencies: %w", err)
	}
	httpServer := app.SetupHttpServer(deps, cfg)
	pprofServer := &http.Server{
		Addr: cfg.PProf.Addr,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start the HTTP server
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown HTTP server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		// gracefully shutdown pprof server on context cancellation
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// setupDbPool connects to PostgreSQL when a database URL is configured.
// Without one the service runs on the flat-file store and no pool is created.
func setupDbPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if !cfg.Database.Enabled() {
		return nil, nil
	}
	dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}
	return dbPool, nil
}

// setupPublisher connects to NATS when event publishing is enabled.
// The returned close function is nil when publishing is disabled.
func setupPublisher(cfg *config.Config) (messaging.Publisher, func(), error) {
	if !cfg.Nats.Enabled {
		return nil, nil, nil
	}
	nc, err := natsclient.NewClient(cfg.Nats.Url, cfg.Nats.Timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := natsclient.NewJetStreamContext(nc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return natsclient.NewNatsPublisher(js), nc.Close, nil
}
