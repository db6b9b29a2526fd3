package enginepipe

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/purplecity/predictionmarket-sub000/internal/matchengine"
	"github.com/purplecity/predictionmarket-sub000/internal/redisstream"
)

const (
	OrderInputStream = "engine:order_input"
	EventInputStream = "engine:event_input"
)

// orderInputWire is the admitted-order message the API boundary (out of
// scope here) writes to OrderInputStream; the intake consumer decodes it
// and routes to the right market's MatchEngine.Inbox.
type orderInputWire struct {
	Submit *orderWire
	Cancel *cancelWire
}

type cancelWire struct {
	EventID  int64
	MarketID int16
	OrderID  string
}

// OrderInputConsumer runs one consumer-group member reading OrderInputStream
// and dispatching each decoded message to the matching market engine's
// Inbox. Startup always drains pending messages left by a dead consumer
// before joining the live ">" read — never skipped, since a skipped
// pending order is a silently dropped freeze the ledger already applied.
type OrderInputConsumer struct {
	rdb      *redis.Client
	group    string
	consumer string
	manager  *matchengine.Manager
	batch    int64
	block    time.Duration
}

func NewOrderInputConsumer(rdb *redis.Client, group string, manager *matchengine.Manager, batch int64, block time.Duration) *OrderInputConsumer {
	return &OrderInputConsumer{
		rdb:      rdb,
		group:    group,
		consumer: fmt.Sprintf("order-input-%s", uuid.NewString()),
		manager:  manager,
		batch:    batch,
		block:    block,
	}
}

// Bootstrap ensures the consumer group exists and claims any pending
// messages left by a previous, now-dead consumer.
func (c *OrderInputConsumer) Bootstrap(ctx context.Context) error {
	if err := redisstream.EnsureGroup(ctx, c.rdb, OrderInputStream, c.group); err != nil {
		return fmt.Errorf("ensure order input group: %w", err)
	}
	claimed, err := redisstream.ClaimPending(ctx, c.rdb, OrderInputStream, c.group, c.consumer, 10_000)
	if err != nil {
		return fmt.Errorf("claim pending order input messages: %w", err)
	}
	log.Info().Int("count", len(claimed)).Msg("claimed pending order input messages on startup")
	for _, msg := range claimed {
		c.dispatch(ctx, msg)
	}
	return nil
}

// Run blocks, reading and dispatching messages until ctx is cancelled.
func (c *OrderInputConsumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		msgs, err := redisstream.ReadGroup(ctx, c.rdb, OrderInputStream, c.group, c.consumer, c.batch, c.block)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Msg("order input read group failed")
			continue
		}
		for _, msg := range msgs {
			c.dispatch(ctx, msg)
		}
	}
}

func (c *OrderInputConsumer) dispatch(ctx context.Context, msg redisstream.Message) {
	var wire orderInputWire
	if err := json.Unmarshal([]byte(msg.Payload), &wire); err != nil {
		log.Error().Err(err).Str("id", msg.ID).Msg("order input message decode failed, acking to avoid poison-message loop")
		_ = redisstream.Ack(ctx, c.rdb, OrderInputStream, c.group, msg.ID)
		return
	}

	var (
		eventID  int64
		marketID int16
	)
	switch {
	case wire.Submit != nil:
		eventID, marketID = wire.Submit.Symbol.EventID, wire.Submit.Symbol.MarketID
	case wire.Cancel != nil:
		eventID, marketID = wire.Cancel.EventID, wire.Cancel.MarketID
	default:
		log.Error().Str("id", msg.ID).Msg("order input message carries neither submit nor cancel")
		_ = redisstream.Ack(ctx, c.rdb, OrderInputStream, c.group, msg.ID)
		return
	}

	eng, ok := c.manager.Lookup(eventID, marketID)
	if !ok {
		log.Error().Int64("event_id", eventID).Int16("market_id", marketID).Msg("order input for unknown market, dropping")
		_ = redisstream.Ack(ctx, c.rdb, OrderInputStream, c.group, msg.ID)
		return
	}

	ctrl := matchengine.Control{}
	if wire.Submit != nil {
		o := wire.Submit.toOrder()
		ctrl.Submit = &o
	} else {
		ctrl.Cancel = &matchengine.CancelRequest{OrderID: wire.Cancel.OrderID}
	}

	select {
	case eng.Inbox <- ctrl:
	case <-ctx.Done():
		return
	}

	_ = redisstream.Ack(ctx, c.rdb, OrderInputStream, c.group, msg.ID)
}
