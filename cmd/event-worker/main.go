package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/joho/godotenv"

	"github.com/angelmondragon/mystore-sync/internal/events"
	"github.com/angelmondragon/mystore-sync/internal/identity"
	"github.com/angelmondragon/mystore-sync/internal/notify"
	"github.com/angelmondragon/mystore-sync/internal/orders"
	"github.com/angelmondragon/mystore-sync/internal/remote"
	"github.com/angelmondragon/mystore-sync/pkg/config"
	"github.com/angelmondragon/mystore-sync/pkg/localdb"
	"github.com/angelmondragon/mystore-sync/pkg/logger"
	"github.com/angelmondragon/mystore-sync/pkg/metrics"
	"github.com/angelmondragon/mystore-sync/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "event-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "event-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if cfg.PubSub.ProjectID == "" {
		requireResource(ctx, logg, "pubsub project", errors.New("project id not configured"))
	}

	dbClient, err := localdb.New(ctx, cfg.LocalDB, logg)
	requireResource(ctx, logg, "local cache", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "failed to close local cache", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	orderClient, err := remote.NewOrderClient(cfg.Remote.BaseURL, cfg.Remote.Timeout)
	requireResource(ctx, logg, "order client", err)

	queryCache, err := orders.NewRedisCache(redisClient)
	requireResource(ctx, logg, "order query cache", err)

	mets := metrics.NewSyncMetrics(nil)
	ordersRepo, err := orders.NewRepository(
		orderClient,
		orders.NewBackupStore(dbClient),
		queryCache,
		identity.ContextProvider{},
		mets,
		notify.NewLogSink(logg),
		logg,
	)
	requireResource(ctx, logg, "order repository", err)

	merger, err := events.NewMerger(ordersRepo, mets, logg)
	requireResource(ctx, logg, "order event merger", err)

	subscription := pubsubClient.Subscriber(cfg.PubSub.SubscriptionID)
	consumer, err := events.NewConsumer(subscription, merger, redisClient, cfg.Sync.IdempotencyTTL, logg)
	requireResource(ctx, logg, "event consumer", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":          cfg.App.Env,
		"subscription": cfg.PubSub.SubscriptionID,
	})
	logg.Info(runCtx, "event worker ready")

	if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "event worker failed", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
