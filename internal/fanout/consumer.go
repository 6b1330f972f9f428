package fanout

import (
	"context"
	"encoding/json"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/crewdeck-app/crewdeck-backend/pkg/idempotency"
	"github.com/crewdeck-app/crewdeck-backend/pkg/logger"
	"github.com/crewdeck-app/crewdeck-backend/pkg/metrics"
	pkgerrors "github.com/crewdeck-app/crewdeck-backend/pkg/errors"
)

const channelFanoutConsumer = "channel-fanout"

// Consumer drives the fan-out processor from the channel events subscription.
// Every message is acked exactly once regardless of outcome: the platform
// redelivers events at least once, and the sent-notification ledger is what
// keeps a redelivered event from producing a duplicate push. A nack-and-retry
// loop could duplicate, so failures become silent misses instead.
type Consumer struct {
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	processor    *Processor
	metrics      *metrics.FanoutMetrics
	logg         *logger.Logger
}

// NewConsumer builds a channel event consumer.
func NewConsumer(subscription *pubsub.Subscriber, manager *idempotency.Manager, processor *Processor, fm *metrics.FanoutMetrics, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "channel events subscription required")
	}
	if manager == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "idempotency manager required")
	}
	if processor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fanout processor required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Consumer{
		subscription: subscription,
		idempotency:  manager,
		processor:    processor,
		metrics:      fm,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		c.process(ctx, msg)
		msg.Ack()
	})
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
	})

	var event ChannelEventPayload
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.metrics.IncFailure()
		c.logg.Error(logCtx, "failed to decode channel event", err)
		return
	}

	dedupID := event.EventID
	if dedupID == "" {
		dedupID = msg.ID
	}
	already, err := c.idempotency.CheckAndMarkProcessed(ctx, channelFanoutConsumer, dedupID)
	if err != nil {
		// Without the ledger a dispatch could duplicate on redelivery; a
		// missed notification is the safer failure.
		c.metrics.IncFailure()
		c.logg.Error(logCtx, "notification ledger unavailable, dropping event", err)
		return
	}
	if already {
		c.metrics.IncDuplicate()
		c.logg.Info(logCtx, "event already handled")
		return
	}

	if _, err := c.processor.HandleEvent(logCtx, event); err != nil {
		c.metrics.IncFailure()
		c.logg.Error(logCtx, "fan-out failed, notification missed", err)
	}
}
