package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/purplecity/predictionmarket-sub000/internal/enginepipe"
	"github.com/purplecity/predictionmarket-sub000/internal/matchengine"
	"github.com/purplecity/predictionmarket-sub000/internal/model"
	"github.com/purplecity/predictionmarket-sub000/internal/redisstream"
)

type storeEventWire struct {
	Kind     matchengine.StoreEventKind
	Order    *model.Order `json:",omitempty"`
	OrderID  string       `json:",omitempty"`
	Symbol   model.Symbol `json:",omitempty"`
	EventID  int64        `json:",omitempty"`
	MarketID int16        `json:",omitempty"`
	UpdateID uint64       `json:",omitempty"`
	Market   *model.Market `json:",omitempty"`
}

// Consumer reads enginepipe.StoreStream and applies every message to an
// OrderStorage, acking only after the mutation and its message id have
// landed in the same locked update.
type Consumer struct {
	rdb      *redis.Client
	group    string
	consumer string
	storage  *OrderStorage
	batch    int64
	block    time.Duration
}

func NewConsumer(rdb *redis.Client, group string, storage *OrderStorage, batch int64, block time.Duration) *Consumer {
	return &Consumer{
		rdb:      rdb,
		group:    group,
		consumer: fmt.Sprintf("store-%s", uuid.NewString()),
		storage:  storage,
		batch:    batch,
		block:    block,
	}
}

// Bootstrap ensures the consumer group exists, claims pending messages left
// by a dead consumer, and applies them before the caller starts Run. The
// store never skips a message here: a skipped order mutation desyncs the
// shadow from the engine forever, since there is no replay beyond this
// stream's own retention.
func (c *Consumer) Bootstrap(ctx context.Context) error {
	if err := redisstream.EnsureGroup(ctx, c.rdb, enginepipe.StoreStream, c.group); err != nil {
		return fmt.Errorf("ensure store group: %w", err)
	}
	claimed, err := redisstream.ClaimPending(ctx, c.rdb, enginepipe.StoreStream, c.group, c.consumer, 10_000)
	if err != nil {
		return fmt.Errorf("claim pending store messages: %w", err)
	}
	log.Info().Int("count", len(claimed)).Msg("claimed pending store messages on startup")
	for _, msg := range claimed {
		c.apply(ctx, msg)
	}
	return nil
}

// Run blocks, applying and acking every store-event message until ctx is
// cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		msgs, err := redisstream.ReadGroup(ctx, c.rdb, enginepipe.StoreStream, c.group, c.consumer, c.batch, c.block)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Msg("store stream read group failed")
			continue
		}
		for _, msg := range msgs {
			c.apply(ctx, msg)
		}
	}
}

func (c *Consumer) apply(ctx context.Context, msg redisstream.Message) {
	var wire storeEventWire
	if err := json.Unmarshal([]byte(msg.Payload), &wire); err != nil {
		log.Error().Err(err).Str("id", msg.ID).Msg("store event decode failed, acking to avoid poison-message loop")
		_ = redisstream.Ack(ctx, c.rdb, enginepipe.StoreStream, c.group, msg.ID)
		return
	}
	c.storage.HandleOrderChange(matchengine.StoreEvent{
		Kind: wire.Kind, Order: wire.Order, OrderID: wire.OrderID, Symbol: wire.Symbol,
		EventID: wire.EventID, MarketID: wire.MarketID, UpdateID: wire.UpdateID, Market: wire.Market,
	}, msg.ID)
	_ = redisstream.Ack(ctx, c.rdb, enginepipe.StoreStream, c.group, msg.ID)
}

// StartPeriodicSave runs SaveSnapshot every interval until ctx is
// cancelled, and after each successful save trims everything up to and
// including the last processed message from the store stream — the same
// XTRIM MINID + XDEL-self cleanup the original storage layer runs, so the
// stream never grows past one snapshot interval's worth of messages.
func StartPeriodicSave(ctx context.Context, rdb *redis.Client, storage *OrderStorage, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := storage.SaveSnapshot(); err != nil {
				log.Error().Err(err).Msg("failed to save snapshot")
				continue
			}
			lastID := storage.LastMessageID()
			if lastID == "" {
				continue
			}
			if err := cleanupOldMessages(ctx, rdb, lastID); err != nil {
				log.Error().Err(err).Msg("failed to cleanup old messages after snapshot")
			}
		}
	}
}

func cleanupOldMessages(ctx context.Context, rdb *redis.Client, lastMessageID string) error {
	if err := redisstream.TrimMinID(ctx, rdb, enginepipe.StoreStream, lastMessageID); err != nil {
		return fmt.Errorf("trim store stream: %w", err)
	}
	if err := rdb.XDel(ctx, enginepipe.StoreStream, lastMessageID).Err(); err != nil {
		return fmt.Errorf("delete last processed message: %w", err)
	}
	return nil
}
