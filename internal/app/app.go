package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/utafrali/review-service/internal/client"
	"github.com/utafrali/review-service/internal/config"
	"github.com/utafrali/review-service/internal/event"
	handler "github.com/utafrali/review-service/internal/handler/http"
	"github.com/utafrali/review-service/internal/repository"
	"github.com/utafrali/review-service/internal/repository/memory"
	mongorepo "github.com/utafrali/review-service/internal/repository/mongo"
	"github.com/utafrali/review-service/internal/service"
	"github.com/utafrali/review-service/pkg/database"
	"github.com/utafrali/review-service/pkg/health"
	pkgkafka "github.com/utafrali/review-service/pkg/kafka"
	"github.com/utafrali/review-service/pkg/tracing"
)

// App wires together all dependencies and runs the review service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	mongoClient    *mongo.Client
	producer       *pkgkafka.Producer
	tracerShutdown func(context.Context) error
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*cfg.MongoConnectTimeout)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize tracing.
	tracingCfg := tracing.DefaultConfig(handler.ServiceName)
	tracingCfg.Environment = cfg.Environment
	tracingCfg.OTLPEndpoint = cfg.OTELEndpoint
	tracingCfg.SampleRate = cfg.OTELSampleRate
	tracingCfg.Enabled = cfg.OTELEnabled

	shutdown, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = shutdown

	database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)

	healthHandler := health.NewHandler()

	// Initialize the review store.
	repo, err := a.initStore(ctx, healthHandler)
	if err != nil {
		a.cleanup()
		return nil, err
	}

	// Initialize the event publisher.
	var publisher service.EventPublisher = event.NoopPublisher{}
	if cfg.EventsEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = event.NewProducer(a.producer, logger)
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Book catalog client.
	bookClient := client.NewBookClient(client.Config{
		BaseURL:          cfg.BookServiceURL,
		Timeout:          cfg.BookServiceTimeout,
		SkipVerification: cfg.SkipBookVerification(),
	}, logger)
	if cfg.SkipBookVerification() {
		logger.Warn("book verification disabled")
	}

	// Build the dependency graph.
	reviewService := service.NewReviewService(repo, publisher, logger)
	router := handler.NewRouter(reviewService, bookClient, healthHandler, logger)

	a.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return a, nil
}

func (a *App) initStore(ctx context.Context, healthHandler *health.Handler) (repository.ReviewRepository, error) {
	if a.cfg.StoreDriver == config.StoreMemory {
		a.logger.Warn("using in-memory review store, data is not persisted")
		return memory.NewReviewRepository()
	}

	mongoCfg := database.DefaultMongoConfig()
	mongoCfg.URI = a.cfg.MongoAddress
	mongoCfg.Database = a.cfg.MongoDatabase
	mongoCfg.ConnectTimeout = a.cfg.MongoConnectTimeout
	mongoCfg.AppName = handler.ServiceName

	dbName, err := mongoCfg.DatabaseName()
	if err != nil {
		return nil, err
	}

	mongoClient, err := database.NewMongoClient(ctx, mongoCfg, handler.ServiceName, a.logger)
	if err != nil {
		return nil, err
	}
	a.mongoClient = mongoClient
	a.logger.Info("connected to MongoDB", slog.String("database", dbName))

	repo := mongorepo.NewReviewRepository(mongoClient.Database(dbName))
	if err := repo.EnsureIndexes(ctx); err != nil {
		return nil, err
	}

	healthHandler.RegisterCritical("mongo", func(ctx context.Context) error {
		return database.Ping(ctx, mongoClient)
	})
	return repo, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components. The HTTP server drains first,
// then the Kafka producer flushes, then MongoDB and the tracer close.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
	}
	if err := a.closeBackends(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeBackends(ctx context.Context) error {
	var errs []error

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("kafka producer close: %w", err))
		}
	}
	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(ctx); err != nil {
			a.logger.Error("mongo disconnect error", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("mongo disconnect: %w", err))
		}
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

// cleanup releases what NewApp acquired before it failed.
func (a *App) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.closeBackends(ctx)
}

// Handler exposes the HTTP handler, for tests.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}
