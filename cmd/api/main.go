package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookshop/internal/cache"
	"bookshop/internal/carrier"
	"bookshop/internal/config"
	"bookshop/internal/database"
	"bookshop/internal/events"
	"bookshop/internal/handler"
	"bookshop/internal/jobs"
	"bookshop/internal/metrics"
	"bookshop/internal/orderid"
	"bookshop/internal/promo"
	"bookshop/internal/reconcile"
	"bookshop/internal/repository"
	"bookshop/internal/router"
	"bookshop/internal/service"
	"bookshop/internal/settings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// reconcileLockKey is shared with the worker so a cron-triggered run and a
// scheduled run never overlap.
const reconcileLockKey = "bookshop:lock:reconcile"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger, "api")
	logger.Info().Msg("starting bookshop API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool, "up"); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info().Msg("database migrations applied")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	shopMetrics := metrics.NewShop(registry)

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	promoRepo := repository.NewPromoRepository(pool, logger)
	settingsRepo := repository.NewSettingsRepository(pool, logger)

	// Redis backs the settings cache and the reconcile lock when configured
	settingsProvider := settings.NewProvider(settingsRepo)
	var reconcileLock reconcile.Lock = &jobs.LocalLock{}
	if cfg.RedisEnabled() {
		store, err := cache.NewRedisStore(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer store.Close()

		settingsProvider = settings.NewCachedProvider(settingsRepo, store, cfg.Redis.SettingsTTL, logger)
		reconcileLock, err = jobs.NewRedisLock(store, reconcileLockKey, cfg.Redis.LockTTL)
		if err != nil {
			return fmt.Errorf("failed to create reconcile lock: %w", err)
		}
	} else {
		logger.Info().Msg("redis not configured, using in-process reconcile lock and uncached settings")
	}

	publisher := newPublisher(cfg, logger)
	defer publisher.Close()

	carrierClient := carrier.NewClient(cfg.Carrier.BaseURL, cfg.Carrier.Timeout, logger,
		carrier.WithMetrics(shopMetrics))

	// Initialize services
	evaluator := promo.NewEvaluator(promoRepo, logger)
	productService := service.NewProductService(productRepo, logger)
	checkoutService := service.NewCheckoutService(
		orderRepo,
		productRepo,
		promoRepo,
		service.NewStockValidator(productRepo, logger),
		evaluator,
		orderid.NewGenerator(orderRepo, logger),
		settingsProvider,
		logger,
		service.WithPublisher(publisher),
		service.WithCheckoutMetrics(shopMetrics),
	)
	orderService := service.NewOrderService(orderRepo, settingsProvider, publisher, logger)
	shippingService := service.NewShippingService(orderRepo, settingsProvider, carrierClient, publisher,
		cfg.Carrier.ParcelWeightPerItem, logger)
	promoService := service.NewPromoService(evaluator, logger)
	reconciler := reconcile.New(orderRepo, settingsProvider, carrierClient, cfg.Carrier.CallDelay, logger,
		reconcile.WithLock(reconcileLock),
		reconcile.WithPublisher(publisher),
		reconcile.WithMetrics(shopMetrics),
	)

	// Initialize router
	mux := router.New(router.Params{
		Products:   handler.NewProductHandler(productService, logger),
		Orders:     handler.NewOrderHandler(checkoutService, orderService, logger),
		Promo:      handler.NewPromoHandler(promoService, logger),
		Admin:      handler.NewAdminHandler(orderService, shippingService, logger),
		Cron:       handler.NewCronHandler(reconciler, logger),
		APIKey:     cfg.Auth.APIKey,
		CronSecret: cfg.Auth.CronSecret,
		DB:         pool,
		Gatherer:   registry,
		Logger:     logger,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // reconcile runs synchronously over every shipped order
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

func newPublisher(cfg *config.Config, logger zerolog.Logger) events.Publisher {
	if !cfg.KafkaEnabled() {
		logger.Info().Msg("kafka not configured, order events are not published")
		return events.NopPublisher{}
	}
	return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
}
