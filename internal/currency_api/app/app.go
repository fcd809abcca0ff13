package app

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/langowen/azn-rates/deploy/config"
	"github.com/langowen/azn-rates/internal/currency_api/adapter/api_client/exchangerate"
	"github.com/langowen/azn-rates/internal/currency_api/adapter/storage/file"
	"github.com/langowen/azn-rates/internal/currency_api/adapter/storage/postgres"
	"github.com/langowen/azn-rates/internal/currency_api/adapter/storage/redis"
	"github.com/langowen/azn-rates/internal/currency_api/fetcher"
	"github.com/langowen/azn-rates/internal/currency_api/metrics"
	"github.com/langowen/azn-rates/internal/currency_api/ports/http/public"
	"github.com/langowen/azn-rates/internal/currency_api/scheduler"
	"github.com/langowen/azn-rates/internal/currency_api/store"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	redisPack "github.com/redis/go-redis/v9"
)

type App struct {
	cfg      *config.Config
	registry *prometheus.Registry

	Store     *store.Store
	Fetcher   *fetcher.Fetcher
	Scheduler *scheduler.Scheduler
	Server    *public.Server

	closers []io.Closer
}

func NewApp(cfg *config.Config) *App {
	return &App{cfg: cfg}
}

// Init builds every component. Only a configured remote storage that cannot be reached
// makes it fail.
func (a *App) Init(ctx context.Context) error {
	const op = "app.Init"

	a.initLogger()
	slog.Info("Logger initialized")

	slog.With("config", a.safeConfig()).Info("starting currency api")

	persister, err := a.initStorage(ctx)
	if err != nil {
		return errors.Wrap(err, op)
	}
	slog.Info("Storage initialized", "driver", a.cfg.Storage.Driver)

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(a.registry)

	a.Store = store.NewStore(persister)
	a.Store.Load(ctx)
	appMetrics.Currencies.Set(float64(len(a.Store.Current())))
	slog.Info("Rates loaded", "currencies", len(a.Store.Current()))

	httpClient := exchangerate.NewHTTPClient(a.cfg.Fetcher.Timeout)
	slog.Info("HTTP client initialized")

	a.Fetcher = fetcher.NewFetcher(a.Store, httpClient, a.cfg.Fetcher, appMetrics)
	a.Scheduler = scheduler.NewScheduler(a.Fetcher, a.cfg.Fetcher.Interval())
	a.Server = public.NewServer(a.Store, a.Scheduler, appMetrics, a.registry, a.cfg.HTTPServer)

	return nil
}

// Start launches the refresh loop and the HTTP server. The returned channel closes after
// ctx is cancelled and both have stopped.
func (a *App) Start(ctx context.Context) <-chan struct{} {
	a.Scheduler.Start(ctx)
	slog.Info("Scheduler started", "interval", a.cfg.Fetcher.Interval())

	serverDone := a.Server.Start(ctx)

	done := make(chan struct{})
	go func() {
		<-serverDone
		a.Scheduler.Stop()
		a.close()
		close(done)
	}()

	return done
}

func (a *App) initLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     a.cfg.SlogLevel(),
		AddSource: false,
	}))
	slog.SetDefault(logger)
}

func (a *App) initStorage(ctx context.Context) (store.Persister, error) {
	switch a.cfg.Storage.Driver {
	case config.DriverRedis:
		options := &redisPack.Options{
			Addr:     a.cfg.Redis.Host,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		}

		rdStorage, err := redis.InitStorage(ctx, options, a.cfg.Redis.Key, a.cfg.Redis.Channel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rdStorage)

		return rdStorage, nil

	case config.DriverPostgres:
		pgStorage, err := postgres.InitStorage(ctx, a.cfg.Postgres.DSN(), a.cfg.Postgres.Timeout)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pgStorage)

		return pgStorage, nil

	default:
		return file.NewStorage(a.cfg.Storage.File), nil
	}
}

func (a *App) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			slog.Error("Failed to close storage", "error", err)
		}
	}
}

func (a *App) safeConfig() config.Config {
	cfg := *a.cfg
	if cfg.Redis.Password != "" {
		cfg.Redis.Password = "***"
	}
	if cfg.Postgres.Password != "" {
		cfg.Postgres.Password = "***"
	}
	return cfg
}
