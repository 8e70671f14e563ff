package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/mystore-sync/api/routes"
	"github.com/angelmondragon/mystore-sync/internal/cart"
	"github.com/angelmondragon/mystore-sync/internal/cartsync"
	"github.com/angelmondragon/mystore-sync/internal/checkout"
	"github.com/angelmondragon/mystore-sync/internal/identity"
	"github.com/angelmondragon/mystore-sync/internal/notify"
	"github.com/angelmondragon/mystore-sync/internal/orders"
	"github.com/angelmondragon/mystore-sync/internal/payment"
	"github.com/angelmondragon/mystore-sync/internal/remote"
	"github.com/angelmondragon/mystore-sync/pkg/config"
	"github.com/angelmondragon/mystore-sync/pkg/localdb"
	"github.com/angelmondragon/mystore-sync/pkg/logger"
	"github.com/angelmondragon/mystore-sync/pkg/metrics"
	"github.com/angelmondragon/mystore-sync/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "syncd"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "syncd",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := localdb.New(ctx, cfg.LocalDB, logg)
	requireResource(ctx, logg, "local cache", err)

	// Redis is optional: without it order query caching falls back
	// to the in-process cache.
	var (
		redisClient *redis.Client
		cachePinger redis.Pinger
		queryCache  orders.QueryCache
	)
	redisClient, err = redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Warn(ctx, fmt.Sprintf("redis unavailable, using in-memory order cache: %v", err))
		redisClient = nil
		queryCache = orders.NewMemoryCache()
	} else {
		cachePinger = redisClient
		queryCache, err = orders.NewRedisCache(redisClient)
		requireResource(ctx, logg, "order query cache", err)
	}

	mets := metrics.NewSyncMetrics(prometheus.DefaultRegisterer)
	sink := notify.NewLogSink(logg)
	provider := identity.ContextProvider{}

	cartClient, err := remote.NewCartClient(cfg.Remote.BaseURL, cfg.Remote.Timeout)
	requireResource(ctx, logg, "cart client", err)
	orderClient, err := remote.NewOrderClient(cfg.Remote.BaseURL, cfg.Remote.Timeout)
	requireResource(ctx, logg, "order client", err)
	gatewayClient, err := remote.NewGatewayClient(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.Gateway.Currency, cfg.Gateway.Timeout)
	requireResource(ctx, logg, "gateway client", err)

	var quoter checkout.ShippingQuoter
	if cfg.Shipping.BaseURL != "" {
		shippingClient, err := remote.NewShippingClient(cfg.Shipping.BaseURL, cfg.Shipping.Timeout)
		requireResource(ctx, logg, "shipping client", err)
		quoter = shippingClient
	}

	cartRepo := cart.NewRepository(dbClient)
	store, err := cart.NewStore(provider, cartRepo, sink, logg)
	requireResource(ctx, logg, "cart store", err)
	store.Load(ctx)

	queue, err := cartsync.NewQueue(cartClient, cfg.Sync.QueueSize, cfg.Sync.DrainTimeout, mets, logg)
	requireResource(ctx, logg, "cart sync queue", err)
	syncService, err := cartsync.NewService(store, cartClient, queue, mets, logg)
	requireResource(ctx, logg, "cart sync service", err)

	backup := orders.NewBackupStore(dbClient)
	ordersRepo, err := orders.NewRepository(orderClient, backup, queryCache, provider, mets, sink, logg)
	requireResource(ctx, logg, "order repository", err)

	checkoutService, err := checkout.NewService(store, ordersRepo, checkout.NewCouponState(), provider, quoter, logg)
	requireResource(ctx, logg, "checkout service", err)

	orchestrator, err := payment.NewOrchestrator(gatewayClient, checkoutService, sink, logg)
	requireResource(ctx, logg, "payment orchestrator", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	queueDone := make(chan struct{})
	go func() {
		defer close(queueDone)
		queue.Run(runCtx)
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg, logg, dbClient, cachePinger,
			store, syncService, checkoutService, ordersRepo, orchestrator,
		),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	startCtx := logg.WithFields(runCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(startCtx, "sync engine ready")

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(startCtx, "server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
	}

	if err := shutdown(logg, server, queueDone, dbClient, redisClient); err != nil {
		logg.Error(context.Background(), "shutdown finished with errors", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "shutdown complete")
}

// shutdown stops the HTTP server, waits for the write-behind queue to
// drain, and closes the storage clients. Errors are collected so one
// failure never skips the remaining teardown.
func shutdown(logg *logger.Logger, server *http.Server, queueDone <-chan struct{}, dbClient *localdb.Client, redisClient *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	var errs []error
	if err := server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}

	select {
	case <-queueDone:
	case <-ctx.Done():
		logg.Warn(ctx, "cart sync queue did not drain before the deadline")
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if err := dbClient.Close(); err != nil {
		errs = append(errs, fmt.Errorf("local cache: %w", err))
	}
	return multierr.Combine(errs...)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
