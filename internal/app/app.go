package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Priya8975/event-inserter/internal/api"
	"github.com/Priya8975/event-inserter/internal/cache"
	"github.com/Priya8975/event-inserter/internal/completion"
	"github.com/Priya8975/event-inserter/internal/config"
	"github.com/Priya8975/event-inserter/internal/engine"
	"github.com/Priya8975/event-inserter/internal/metrics"
	"github.com/Priya8975/event-inserter/internal/producer"
	"github.com/Priya8975/event-inserter/internal/retry"
	"github.com/Priya8975/event-inserter/internal/store"
	"github.com/Priya8975/event-inserter/internal/transport"
	"github.com/Priya8975/event-inserter/internal/worker"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Deps are the collaborators of one run.
type Deps struct {
	Redis *redis.Client
	Sink  worker.Sink
	Cache cache.Store

	// Events backs the status API; optional.
	Events api.EventReader
}

// App runs the ingestion pipeline for one input file.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	deps     Deps
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	closers []func()
}

// NewWithDeps builds an App around already constructed collaborators.
func NewWithDeps(cfg *config.Config, logger *slog.Logger, deps Deps) *App {
	reg := prometheus.NewRegistry()
	return &App{
		cfg:      cfg,
		logger:   logger,
		deps:     deps,
		registry: reg,
		metrics:  metrics.New(reg),
	}
}

// New connects to PostgreSQL and Redis, applies migrations and prepares an
// empty tiered cache.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to PostgreSQL")

	redisStore, err := store.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		pgStore.Close()
		return nil, err
	}
	logger.Info("connected to Redis")

	closers := []func(){
		func() { redisStore.Close() },
		pgStore.Close,
	}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if err := pgStore.RunMigrations(ctx, store.Migrations()); err != nil {
		closeAll()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("database migrations applied")

	tiered := buildCache(cfg, logger, redisStore.Client(), pgStore)
	if err := tiered.Reset(ctx); err != nil {
		closeAll()
		return nil, fmt.Errorf("preparing cache: %w", err)
	}

	a := NewWithDeps(cfg, logger, Deps{
		Redis:  redisStore.Client(),
		Sink:   pgStore,
		Cache:  tiered,
		Events: pgStore,
	})
	a.closers = closers
	return a, nil
}

// buildCache stacks memory, Redis and PostgreSQL tiers. A tier configured
// with zero megabytes is left out, except the last one, which is then unbounded.
func buildCache(cfg *config.Config, logger *slog.Logger, rdb *redis.Client, pg *store.PostgresStore) *cache.Tiered {
	var levels []cache.Level
	if cfg.CacheMemoryMB > 0 {
		levels = append(levels, cache.Level{
			Tier:     cache.NewMemory(),
			Capacity: cache.EntriesForMB(cfg.CacheMemoryMB),
		})
	}
	if cfg.CacheRedisMB > 0 {
		levels = append(levels, cache.Level{
			Tier:     cache.NewRedisTier(rdb, cfg.CacheKey),
			Capacity: cache.EntriesForMB(cfg.CacheRedisMB),
		})
	}
	levels = append(levels, cache.Level{
		Tier:     pg.PendingTier(),
		Capacity: cache.EntriesForMB(cfg.CacheDiskMB),
	})

	return cache.NewTiered(logger, levels...)
}

// Close releases database and Redis connections.
func (a *App) Close() {
	for _, c := range a.closers {
		c()
	}
	a.closers = nil
}

// Run reads the file, publishes every correlated event and returns once the
// consumer has handled the terminal message. With no completion timeout
// configured, a run that never delivers a terminal message blocks until ctx
// is cancelled.
func (a *App) Run(ctx context.Context, path string) error {
	if a.cfg.StatusAddr != "" {
		stop := a.serveStatus()
		defer stop()
	}

	done := completion.New()
	consumer := worker.NewConsumer(a.deps.Sink, done, a.metrics, a.logger)

	// Each run reads through its own group and only handles its own entries,
	// so concurrent runs on one stream cannot release each other.
	runID := uuid.NewString()
	group := a.cfg.ConsumerGroup + "-" + runID
	sub := transport.NewSubscriber(a.deps.Redis, a.cfg.StreamKey, group, "eventinserter-"+runID, consumer.Handle, a.logger).
		WithPolling(a.cfg.PollInterval, a.cfg.BatchSize).
		WithRun(runID)
	if err := sub.Setup(ctx); err != nil {
		return err
	}
	defer func() {
		if err := sub.Teardown(context.Background()); err != nil {
			a.logger.Warn("failed to remove consumer group", "group", group, "error", err)
		}
	}()

	subCtx, stopSub := context.WithCancel(ctx)
	subDone := make(chan struct{})
	go func() {
		sub.Start(subCtx)
		close(subDone)
	}()
	defer func() {
		stopSub()
		<-subDone
	}()

	policy := retry.NewPolicy(a.cfg.RetryMaxAttempts, a.cfg.RetryDelay, a.logger)
	policy.OnRetry = a.metrics.ObserveRetry

	pub := transport.NewPublisher(a.deps.Redis, a.cfg.StreamKey, policy, a.logger).WithRun(runID)
	if a.cfg.PublishRateLimit > 0 {
		pub.WithThrottle(transport.NewThrottle(a.deps.Redis, a.logger), a.cfg.PublishRateLimit)
	}

	correlator := engine.NewCorrelator(a.deps.Cache, policy, a.logger)
	prod := producer.New(correlator, pub, a.metrics, a.logger)

	sent, err := prod.Run(ctx, path)
	if err != nil {
		return fmt.Errorf("processing %s: %w", path, err)
	}

	if pending, err := a.deps.Cache.Len(ctx); err == nil {
		a.metrics.PendingEntries.Set(float64(pending))
		if pending > 0 {
			a.logger.Warn("ids without a second occurrence", "pending", pending)
		}
	}

	if sent == 0 {
		a.logger.Warn("no events were correlated, no terminal message will be sent")
	}

	a.logger.Info("waiting for all events to be saved", "events_sent", sent)
	if err := done.WaitContext(ctx, a.cfg.CompletionTimeout); err != nil {
		return fmt.Errorf("waiting for consumer: %w", err)
	}

	a.logger.Info("all events handled", "events_sent", sent)
	return nil
}

// serveStatus starts the status server and returns a function that shuts it down.
func (a *App) serveStatus() func() {
	server := &http.Server{
		Addr:         a.cfg.StatusAddr,
		Handler:      api.NewRouter(a.deps.Events, a.registry),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		a.logger.Info("status server starting", "addr", a.cfg.StatusAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("status server error", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("status server forced to shutdown", "error", err)
		}
	}
}
