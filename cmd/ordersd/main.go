package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"kitchen-orders-backend/config"
	"kitchen-orders-backend/internal/api"
	"kitchen-orders-backend/internal/db"
	"kitchen-orders-backend/internal/logging"
	"kitchen-orders-backend/internal/notification"
	"kitchen-orders-backend/internal/orders"
	"kitchen-orders-backend/internal/store"
	"kitchen-orders-backend/internal/stream"
)

func main() {
	seedDemo := flag.Bool("seed-demo", false, "insert the Demo Deli restaurant on startup")
	flag.Parse()

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	logger := logging.NewLogger(os.Stdout, cfg.Log.Level)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("path", configPath))

	if err := run(cfg, *seedDemo, logger); err != nil {
		logger.Error("server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, seedDemo bool, logger *slog.Logger) error {
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info("database initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if seedDemo {
		if err := db.SeedDemo(ctx, gormDB); err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
		logger.Info("demo restaurant seeded", slog.String("slug", db.DemoRestaurantSlug))
	}

	appStore := store.NewGormStore(gormDB)

	metrics := stream.NewMetrics(nil)
	if err := metrics.Register(); err != nil {
		return fmt.Errorf("failed to register stream metrics: %w", err)
	}
	registry := stream.NewRegistry(
		stream.WithLogger(logger.With(slog.String("component", "stream"))),
		stream.WithMetrics(metrics),
	)
	streams := stream.NewHandler(registry,
		stream.WithKeepAlive(cfg.Stream.KeepAlive),
		stream.WithBufferSize(cfg.Stream.BufferSize),
	)

	opts := []orders.Option{
		orders.WithTaxRate(cfg.Orders.TaxRate),
		orders.WithListLimits(cfg.Orders.ListDefaultLimit, cfg.Orders.ListMaxLimit),
		orders.WithLogger(logger.With(slog.String("component", "orders"))),
	}
	if cfg.Orders.LockTerminalStatuses {
		opts = append(opts, orders.WithPolicy(orders.TerminalLocked))
	}

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions,
			logger.With(slog.String("component", "push")))
		pool.Start(ctx)
		opts = append(opts, orders.WithNotifier(pool))
		logger.Info("kitchen push alerts enabled", slog.Int("workers", cfg.WorkerPool.Size))
	} else {
		logger.Warn("VAPID keys not configured; kitchen push alerts disabled")
	}

	service := orders.NewService(appStore, registry, opts...)
	handler := api.NewHandler(appStore, service, streams, webpushOptions, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(handler, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Open streams never go idle on their own; end them when shutdown begins.
	server.RegisterOnShutdown(registry.Close)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", slog.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("HTTP server ListenAndServe: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}
	cancel()

	logger.Info("server gracefully stopped")
	return nil
}
