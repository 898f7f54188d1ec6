package main

import (
	"context"
	"errors"
	"flag"
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
	"bookshop/internal/jobs"
	"bookshop/internal/metrics"
	"bookshop/internal/reconcile"
	"bookshop/internal/repository"
	"bookshop/internal/settings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	workerLockKey    = "bookshop:lock:worker"
	reconcileLockKey = "bookshop:lock:reconcile"
)

func main() {
	once := flag.Bool("once", false, "run every job a single time and exit")
	flag.Parse()

	if err := run(*once); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(once bool) error {
	_ = godotenv.Load()

	cfg, err := config.LoadWithoutAuth()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	registry := prometheus.NewRegistry()
	shopMetrics := metrics.NewShop(registry)
	jobMetrics := metrics.NewJobs(registry)

	orderRepo := repository.NewOrderRepository(pool, logger)
	settingsRepo := repository.NewSettingsRepository(pool, logger)

	settingsProvider := settings.NewProvider(settingsRepo)
	var workerLock jobs.Lock = &jobs.LocalLock{}
	var reconcileLock reconcile.Lock = &jobs.LocalLock{}
	if cfg.RedisEnabled() {
		store, err := cache.NewRedisStore(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer store.Close()

		settingsProvider = settings.NewCachedProvider(settingsRepo, store, cfg.Redis.SettingsTTL, logger)
		if workerLock, err = jobs.NewRedisLock(store, workerLockKey, cfg.Redis.LockTTL); err != nil {
			return fmt.Errorf("failed to create worker lock: %w", err)
		}
		if reconcileLock, err = jobs.NewRedisLock(store, reconcileLockKey, cfg.Redis.LockTTL); err != nil {
			return fmt.Errorf("failed to create reconcile lock: %w", err)
		}
	} else {
		logger.Warn().Msg("redis not configured, jobs are only exclusive within this process")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.KafkaEnabled() {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	}
	defer publisher.Close()

	carrierClient := carrier.NewClient(cfg.Carrier.BaseURL, cfg.Carrier.Timeout, logger,
		carrier.WithMetrics(shopMetrics))
	reconciler := reconcile.New(orderRepo, settingsProvider, carrierClient, cfg.Carrier.CallDelay, logger,
		reconcile.WithLock(reconcileLock),
		reconcile.WithPublisher(publisher),
		reconcile.WithMetrics(shopMetrics),
	)

	sweep, err := jobs.NewCheckoutSweepJob(jobs.CheckoutSweepParams{
		Orders: orderRepo,
		MinAge: cfg.Worker.SweepAge,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create checkout sweep job: %w", err)
	}

	runner, err := jobs.NewRunner(jobs.RunnerParams{
		Registry: jobs.NewRegistry(
			sweep,
			jobs.NewDeliveryReconcileJob(reconciler, logger),
		),
		Lock:     workerLock,
		Metrics:  jobMetrics,
		Interval: cfg.Worker.Interval,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create job runner: %w", err)
	}

	if once {
		logger.Info().Msg("running jobs once")
		return runner.RunCycle(ctx)
	}

	metricsServer := serveMetrics(cfg.Server.Address(), registry, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info().
		Dur("interval", cfg.Worker.Interval).
		Msg("starting worker")

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("worker stopped unexpectedly: %w", err)
	}

	logger.Info().Msg("worker shutting down gracefully")
	return nil
}

func serveMetrics(addr string, gatherer prometheus.Gatherer, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return server
}
