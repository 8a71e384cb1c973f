// Package app assembles the gateway from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/DanielPopoola/paytoday-gateway/internal/api"
	"github.com/DanielPopoola/paytoday-gateway/internal/application"
	"github.com/DanielPopoola/paytoday-gateway/internal/application/services"
	"github.com/DanielPopoola/paytoday-gateway/internal/config"
	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
	"github.com/DanielPopoola/paytoday-gateway/internal/infrastructure/lock"
	"github.com/DanielPopoola/paytoday-gateway/internal/infrastructure/notify"
	"github.com/DanielPopoola/paytoday-gateway/internal/infrastructure/paytoday"
	"github.com/DanielPopoola/paytoday-gateway/internal/infrastructure/persistence/memory"
	"github.com/DanielPopoola/paytoday-gateway/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/paytoday-gateway/internal/infrastructure/telemetry"
	"github.com/DanielPopoola/paytoday-gateway/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/paytoday-gateway/internal/interfaces/rest/middleware"
	"github.com/DanielPopoola/paytoday-gateway/internal/worker"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 30 * time.Second

// App is a fully wired gateway.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Metrics    *telemetry.Metrics
	Store      application.Store
	Provider   application.PaymentProvider
	Reconciler *services.Reconciler
	Checkout   *services.CheckoutService
	Status     *services.StatusService
	Returns    *services.ReturnService
	Scheduler  *worker.Scheduler
	Relay      *worker.OutboxRelay
	Handler    http.Handler

	checks  map[string]handlers.Pinger
	closers []func()
}

type options struct {
	store     application.Store
	provider  application.PaymentProvider
	publisher application.EventPublisher
}

type Option func(*options)

// WithStore skips the configured store driver.
func WithStore(s application.Store) Option {
	return func(o *options) { o.store = s }
}

// WithProvider replaces the PayToday client chain.
func WithProvider(p application.PaymentProvider) Option {
	return func(o *options) { o.provider = p }
}

func WithPublisher(p application.EventPublisher) Option {
	return func(o *options) { o.publisher = p }
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: telemetry.NewMetrics(),
		checks:  map[string]handlers.Pinger{},
	}

	if err := a.openStore(ctx, o.store); err != nil {
		a.Close()
		return nil, err
	}

	a.Provider = o.provider
	if a.Provider == nil {
		client := paytoday.NewClient(cfg.PayToday, logger)
		a.Provider = paytoday.NewInstrumentedClient(
			paytoday.NewRetryClient(client, cfg.Retry),
			telemetry.Tracer(),
			a.Metrics,
		)
	}

	locker := a.newLocker()

	a.Reconciler = services.NewReconciler(a.Store, a.Provider, locker, logger,
		services.WithMetrics(a.Metrics),
		services.WithRedirectRecovery(cfg.Reconciler.AllowRedirectRecovery),
	)
	a.Scheduler = worker.NewScheduler(a.Reconciler, a.Store.Sessions(), worker.SchedulerConfig{
		InitialDelay:    cfg.Polling.InitialDelay,
		Interval:        cfg.Polling.Interval,
		ResyncInterval:  cfg.Polling.ResyncInterval,
		ResyncBatchSize: cfg.Polling.ResyncBatchSize,
		CheckTimeout:    cfg.PayToday.Timeout * time.Duration(cfg.Retry.MaxRetries+1),
	}, a.Metrics, logger)
	a.Reconciler.SetScheduler(a.Scheduler)

	a.Checkout = services.NewCheckoutService(a.Store, a.Provider, a.Scheduler, services.CheckoutSettings{
		Environment:       domain.Environment(cfg.PayToday.Environment),
		ReturnURL:         cfg.Storefront.ReturnURL,
		ClientInterval:    cfg.Polling.ClientInterval,
		ClientMaxDuration: cfg.Polling.ClientMaxDuration,
	}, logger)
	a.Status = services.NewStatusService(a.Store, a.Reconciler, services.StatusSettings{
		OrderReceivedURL:  cfg.Storefront.OrderReceived,
		ClientInterval:    cfg.Polling.ClientInterval,
		ClientMaxDuration: cfg.Polling.ClientMaxDuration,
	}, logger)
	a.Returns = services.NewReturnService(a.Reconciler, services.ReturnSettings{
		OrderReceivedURL: cfg.Storefront.OrderReceived,
		CheckoutURL:      cfg.Storefront.CheckoutURL,
	}, logger)

	publisher := o.publisher
	if publisher == nil {
		publisher = a.newPublisher()
	}
	a.Relay = worker.NewOutboxRelay(a.Store.Outbox(), publisher, cfg.Outbox.Interval, cfg.Outbox.BatchSize, a.Metrics, logger)

	handler, err := a.newHandler(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Handler = handler

	return a, nil
}

func (a *App) openStore(ctx context.Context, store application.Store) error {
	if store != nil {
		a.Store = store
		return nil
	}

	switch a.Config.Store.Driver {
	case "memory":
		a.Logger.Warn("using in-memory store; state is lost on restart")
		a.Store = memory.NewStore()
		return nil
	case "postgres":
		db, err := postgres.Connect(ctx, &a.Config.Database, a.Logger)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		a.Store = postgres.NewStore(db)
		a.checks["database"] = db
		return nil
	default:
		return fmt.Errorf("unknown store driver %q", a.Config.Store.Driver)
	}
}

func (a *App) newLocker() application.Locker {
	if !a.Config.Redis.Enabled {
		return lock.NewKeyedMutex()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	a.closers = append(a.closers, func() { _ = client.Close() })

	locker := lock.NewRedisLocker(client, a.Config.Redis.LockExpiry, a.Logger)
	a.checks["redis"] = locker
	return locker
}

func (a *App) newPublisher() application.EventPublisher {
	if !a.Config.Kafka.Enabled {
		return notify.NewLogPublisher(a.Logger)
	}
	p := notify.NewKafkaPublisher(a.Config.Kafka.Brokers, a.Config.Kafka.Topic)
	a.closers = append(a.closers, func() {
		if err := p.Close(); err != nil {
			a.Logger.Error("failed to close kafka writer", "error", err)
		}
	})
	return p
}

func (a *App) newHandler(ctx context.Context) (http.Handler, error) {
	h := handlers.NewHandlers(a.Checkout, a.Status, a.Returns, a.Reconciler, a.checks, a.Logger)

	mux := http.NewServeMux()
	api.RegisterDocsRoutes(mux)
	mux.Handle("GET /metrics", a.Metrics.Handler())
	h.Register(mux, middleware.AdminAuth(a.Config.Server.AdminToken, a.Logger))

	chain := []func(http.Handler) http.Handler{
		middleware.Timeout(a.Config.Server.ReadTimeout),
		middleware.Logging(a.Logger),
		middleware.Recovery(a.Logger),
	}
	if a.Config.Server.ValidateRequests {
		doc, err := api.LoadSpec(ctx)
		if err != nil {
			return nil, err
		}
		validate, err := middleware.ValidateRequests(doc, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("build request validator: %w", err)
		}
		chain = append(chain, validate)
	}
	chain = append(chain, middleware.Observe(a.Metrics))

	return middleware.Chain(mux, chain...), nil
}

// StartWorkers runs the scheduler and the outbox relay until ctx is done.
func (a *App) StartWorkers(ctx context.Context) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.Scheduler.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		a.Relay.Start(ctx)
	}()
	return &wg
}

// Serve runs the HTTP server and the workers until ctx is cancelled, then
// shuts both down.
func (a *App) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:         "0.0.0.0:" + a.Config.Server.Port,
		Handler:      a.Handler,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	workers := a.StartWorkers(workerCtx)

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		cancelWorkers()
		workers.Wait()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down server...")
	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("server forced to shutdown", "error", err)
	}
	workers.Wait()

	a.Logger.Info("server exited")
	return nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
