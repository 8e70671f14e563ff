package events

import (
	"context"
	"encoding/json"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	pkgerrors "github.com/angelmondragon/mystore-sync/pkg/errors"
	"github.com/angelmondragon/mystore-sync/pkg/logger"
	"github.com/angelmondragon/mystore-sync/pkg/redis"
)

const consumerScope = "order-events"

// Consumer bridges the server-push subscription to the merger. Each
// message is applied at most once, guarded by a redis idempotency key.
type Consumer struct {
	subscription   *pubsub.Subscriber
	merger         *Merger
	idempotency    redis.IdempotencyStore
	idempotencyTTL time.Duration
	logg           *logger.Logger
}

// NewConsumer builds the order event consumer.
func NewConsumer(subscription *pubsub.Subscriber, merger *Merger, store redis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "events: subscription is required")
	}
	if merger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "events: merger is required")
	}
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "events: idempotency store is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "events: logger is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Consumer{
		subscription:   subscription,
		merger:         merger,
		idempotency:    store,
		idempotencyTTL: ttl,
		logg:           logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process handles one message and reports whether it should be acked.
func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) bool {
	logCtx := c.logg.WithFields(ctx, map[string]any{"message_id": msg.ID})

	var ev Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		c.logg.Error(logCtx, "events: failed to decode message", err)
		return true
	}

	eventID := ev.EventID
	if eventID == "" {
		eventID = msg.ID
	}
	key := c.idempotency.IdempotencyKey(consumerScope, eventID)
	fresh, err := c.idempotency.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), c.idempotencyTTL)
	if err != nil {
		c.logg.Error(logCtx, "events: idempotency check failed", err)
		return false
	}
	if !fresh {
		c.logg.Debug(logCtx, "events: message already processed")
		return true
	}

	if err := c.merger.Apply(logCtx, ev); err != nil {
		c.logg.Error(logCtx, "events: merge failed", err)
		// Release the key so redelivery can retry the merge.
		_ = c.idempotency.Del(ctx, key)
		return false
	}
	return true
}
