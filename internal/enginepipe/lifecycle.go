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
	"github.com/purplecity/predictionmarket-sub000/internal/model"
	"github.com/purplecity/predictionmarket-sub000/internal/redisstream"
)

// eventLifecycleWire is the admin-side message that opens or closes one
// market: Added carries the static market metadata a fresh MatchEngine
// needs to start from; Removed carries just the key.
type eventLifecycleWire struct {
	Added   *model.Market
	Removed *marketKeyWire
}

type marketKeyWire struct {
	EventID  int64
	MarketID int16
}

// EventInputConsumer reads EventInputStream and drives the Manager's
// registry: a market opening registers a fresh MatchEngine, a market
// closing unregisters it (which kills its goroutine and drains every
// resting order as a cancel). Mirrors the original EventManager's
// add/remove lifecycle, minus the original's per-event exit-timer — market
// expiry here is driven by an explicit Removed message instead, since Go's
// tomb already gives us a clean kill/drain path without a bespoke timer.
type EventInputConsumer struct {
	rdb           *redis.Client
	group         string
	consumer      string
	manager       *matchengine.Manager
	out           matchengine.Output
	maxOrderCount int
	batch         int64
	block         time.Duration
}

func NewEventInputConsumer(rdb *redis.Client, group string, manager *matchengine.Manager, out matchengine.Output, maxOrderCount int, batch int64, block time.Duration) *EventInputConsumer {
	return &EventInputConsumer{
		rdb:           rdb,
		group:         group,
		consumer:      fmt.Sprintf("event-input-%s", uuid.NewString()),
		manager:       manager,
		out:           out,
		maxOrderCount: maxOrderCount,
		batch:         batch,
		block:         block,
	}
}

func (c *EventInputConsumer) Bootstrap(ctx context.Context) error {
	if err := redisstream.EnsureGroup(ctx, c.rdb, EventInputStream, c.group); err != nil {
		return fmt.Errorf("ensure event input group: %w", err)
	}
	claimed, err := redisstream.ClaimPending(ctx, c.rdb, EventInputStream, c.group, c.consumer, 1_000)
	if err != nil {
		return fmt.Errorf("claim pending event input messages: %w", err)
	}
	log.Info().Int("count", len(claimed)).Msg("claimed pending event input messages on startup")
	for _, msg := range claimed {
		c.dispatch(ctx, msg)
	}
	return nil
}

func (c *EventInputConsumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		msgs, err := redisstream.ReadGroup(ctx, c.rdb, EventInputStream, c.group, c.consumer, c.batch, c.block)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Msg("event input read group failed")
			continue
		}
		for _, msg := range msgs {
			c.dispatch(ctx, msg)
		}
	}
}

func (c *EventInputConsumer) dispatch(ctx context.Context, msg redisstream.Message) {
	var wire eventLifecycleWire
	if err := json.Unmarshal([]byte(msg.Payload), &wire); err != nil {
		log.Error().Err(err).Str("id", msg.ID).Msg("event input message decode failed, acking to avoid poison-message loop")
		_ = redisstream.Ack(ctx, c.rdb, EventInputStream, c.group, msg.ID)
		return
	}

	switch {
	case wire.Added != nil:
		c.addMarket(ctx, *wire.Added)
	case wire.Removed != nil:
		c.removeMarket(ctx, wire.Removed.EventID, wire.Removed.MarketID)
	default:
		log.Error().Str("id", msg.ID).Msg("event input message carries neither add nor remove")
	}

	_ = redisstream.Ack(ctx, c.rdb, EventInputStream, c.group, msg.ID)
}

func (c *EventInputConsumer) addMarket(ctx context.Context, mkt model.Market) {
	eng := matchengine.New(mkt.EventID, mkt.MarketID, mkt.TokenIDs[0], mkt.TokenIDs[1], c.maxOrderCount, c.out)
	if err := c.manager.Register(eng); err != nil {
		log.Error().Err(err).Int64("event_id", mkt.EventID).Int16("market_id", mkt.MarketID).Msg("register market failed")
		return
	}
	if err := c.out.PublishStoreEvent(ctx, matchengine.StoreEvent{Kind: matchengine.StoreEventAdded, EventID: mkt.EventID, MarketID: mkt.MarketID, Market: &mkt}); err != nil {
		log.Error().Err(err).Msg("publish event added store event failed")
	}
	log.Info().Int64("event_id", mkt.EventID).Int16("market_id", mkt.MarketID).Msg("market registered")
}

func (c *EventInputConsumer) removeMarket(ctx context.Context, eventID int64, marketID int16) {
	if err := c.out.PublishStoreEvent(ctx, matchengine.StoreEvent{Kind: matchengine.StoreEventRemoved, EventID: eventID, MarketID: marketID}); err != nil {
		log.Error().Err(err).Msg("publish event removed store event failed")
	}
	if err := c.manager.Unregister(eventID, marketID); err != nil {
		log.Error().Err(err).Int64("event_id", eventID).Int16("market_id", marketID).Msg("unregister market failed")
	}
	log.Info().Int64("event_id", eventID).Int16("market_id", marketID).Msg("market unregistered")
}
