package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/kirillkom/salesscope/internal/config"
	"github.com/kirillkom/salesscope/internal/core/ports"
	"github.com/kirillkom/salesscope/internal/core/usecase"
	memorycache "github.com/kirillkom/salesscope/internal/infrastructure/cache/memory"
	rediscache "github.com/kirillkom/salesscope/internal/infrastructure/cache/redis"
	"github.com/kirillkom/salesscope/internal/infrastructure/csvparse"
	"github.com/kirillkom/salesscope/internal/infrastructure/queue/nats"
	"github.com/kirillkom/salesscope/internal/infrastructure/repository/memory"
	"github.com/kirillkom/salesscope/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/salesscope/internal/infrastructure/resilience"
	"github.com/kirillkom/salesscope/internal/observability/metrics"
)

const cacheSweepInterval = time.Minute

// Observer receives the cache and circuit breaker signals of the wired infrastructure.
type Observer interface {
	metrics.CacheRecorder
	RecordBreakerTransition(service, operation, to string)
}

type App struct {
	Config config.Config

	Datasets ports.DatasetRepository
	Sales    ports.SalesRepository
	Cache    ports.AnalyticsCache

	// Events is nil when no NATS server is configured.
	Events     ports.DatasetEventPublisher
	Subscriber ports.DatasetEventSubscriber

	IngestUC    *usecase.IngestDatasetUseCase
	CatalogUC   *usecase.DatasetCatalogUseCase
	AnalyticsUC *usecase.AnalyticsUseCase
	EventsUC    *usecase.DatasetEventsUseCase

	closers []func()
}

// New wires storage, cache, messaging and use cases for one process. observer may be nil.
func New(ctx context.Context, cfg config.Config, service string, observer Observer) (*App, error) {
	app := &App{Config: cfg}
	clock := clockz.RealClock

	executorOpts := []resilience.Option{}
	if observer != nil {
		executorOpts = append(executorOpts, resilience.WithStateListener(func(operation, _, to string) {
			observer.RecordBreakerTransition(service, operation, to)
		}))
	}
	executor := resilience.NewExecutor(cfg.Resilience.Policy(), executorOpts...)

	if err := app.initStore(ctx, cfg, clock); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.initCache(ctx, cfg, clock, executor); err != nil {
		app.Close()
		return nil, err
	}
	if observer != nil {
		app.Cache = metrics.NewObservedCache(app.Cache, observer, service)
	}
	if err := app.initQueue(cfg, executor); err != nil {
		app.Close()
		return nil, err
	}

	app.AnalyticsUC = usecase.NewAnalyticsUseCase(app.Datasets, app.Sales, app.Cache, clock, cfg.CacheTTL())
	app.IngestUC = usecase.NewIngestDatasetUseCase(app.Datasets, app.Sales, csvparse.NewParser(), app.Events, clock, cfg.IngestBatchSize)
	app.CatalogUC = usecase.NewDatasetCatalogUseCase(app.Datasets, app.Sales, app.Cache, app.Events, clock)
	app.EventsUC = usecase.NewDatasetEventsUseCase(app.AnalyticsUC)
	return app, nil
}

func (a *App) initStore(ctx context.Context, cfg config.Config, clock clockz.Clock) error {
	if cfg.StoreDriver == config.StoreDriverMemory {
		store := memory.NewStore(clock)
		a.Datasets, a.Sales = store, store
		slog.Warn("store_in_memory", "detail", "datasets are lost on restart and not shared between processes")
		return nil
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	a.closers = append(a.closers, func() { _ = db.Close() })
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	a.Datasets = postgres.NewDatasetRepository(db)
	a.Sales = postgres.NewSalesRepository(db)
	return nil
}

func (a *App) initCache(ctx context.Context, cfg config.Config, clock clockz.Clock, executor *resilience.Executor) error {
	if cfg.RedisAddr == "" {
		cache := memorycache.NewCache(clock)
		go cache.RunSweeper(ctx, cacheSweepInterval)
		a.Cache = cache
		return nil
	}

	client, err := rediscache.NewClient(ctx, rediscache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return fmt.Errorf("init redis cache: %w", err)
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	a.Cache = rediscache.NewCache(client, executor)
	return nil
}

func (a *App) initQueue(cfg config.Config, executor *resilience.Executor) error {
	if cfg.NATSURL == "" {
		slog.Info("dataset_events_disabled", "reason", "NATS_URL is empty")
		return nil
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
	if err != nil {
		return fmt.Errorf("init message queue: %w", err)
	}
	a.closers = append(a.closers, queue.Close)
	a.Events = queue
	a.Subscriber = queue
	return nil
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
