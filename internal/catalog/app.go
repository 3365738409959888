package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/nushungry/review-service/internal/config"
	"github.com/nushungry/review-service/pkg/database"
	"github.com/nushungry/review-service/pkg/health"
	pkgkafka "github.com/nushungry/review-service/pkg/kafka"
)

// App wires together all dependencies and runs the catalog sync worker.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	rdb        *redis.Client
	dlq        *pkgkafka.DLQProducer
	consumers  []*pkgkafka.Consumer
	httpServer *http.Server
}

// NewApp creates a new worker instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize Redis client.
	rdb, err := database.NewRedisClient(ctx, cfg.RedisConfig())
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.RedisConfig().Addr()))

	store := NewRedisStore(rdb, time.Duration(cfg.CatalogSummaryTTLH)*time.Hour)
	eventConsumer := NewConsumer(store, logger)

	// Deduplicate replayed events so a redelivered aggregate snapshot is
	// applied once.
	idempotencyStore := pkgkafka.NewMemoryIdempotencyStore(24 * time.Hour)
	handle := pkgkafka.IdempotentHandler(idempotencyStore, eventConsumer.Handle, logger)

	dlq := pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)

	topics := []string{
		pkgkafka.Topic(cfg.TopicNamespace, "review", "rating.changed"),
		pkgkafka.Topic(cfg.TopicNamespace, "review", "price.changed"),
	}

	var consumers []*pkgkafka.Consumer
	for _, topic := range topics {
		c := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.CatalogConsumerGroup,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}, handle, logger).WithDLQ(dlq)
		consumers = append(consumers, c)
	}
	logger.Info("kafka consumers initialized",
		slog.Any("brokers", cfg.KafkaBrokers),
		slog.String("group", cfg.CatalogConsumerGroup),
		slog.Int("topic_count", len(topics)),
	)

	// Health checks and metrics.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
	})

	router := chi.NewRouter()
	router.Get("/health/live", healthHandler.LivenessHandler())
	router.Get("/health/ready", healthHandler.ReadinessHandler())
	router.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.CatalogHTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		rdb:        rdb,
		dlq:        dlq,
		consumers:  consumers,
		httpServer: httpServer,
	}, nil
}

// Run starts the HTTP server and Kafka consumers, blocking until the context
// is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	for _, c := range a.consumers {
		c := c
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down catalog sync worker...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.dlq.Close(); err != nil {
		a.logger.Error("dlq producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("catalog sync worker shutdown complete")
	return errors.Join(errs...)
}
