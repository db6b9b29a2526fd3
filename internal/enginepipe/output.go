// Package enginepipe wires the matching engine to Redis Streams: an
// OutputPublisher that hash-routes every engine event onto one of M writer
// goroutines (so output throughput scales independently of any one
// market's hot loop), and the order/event intake consumer groups that feed
// the engine, including the boot-time pending-message drain.
package enginepipe

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/purplecity/predictionmarket-sub000/internal/matchengine"
	"github.com/purplecity/predictionmarket-sub000/internal/model"
	"github.com/purplecity/predictionmarket-sub000/internal/redisstream"
)

// Stream names the engine's output lands on. Store/processor/depth are
// uncapped (their consumers are the ones allowed to trim, after they've
// durably applied a message); websocket is capped since it only serves
// live subscribers and has no replay obligation.
const (
	StoreStream     = "engine:store"
	ProcessorStream = "engine:processor"
	DepthStream     = "engine:depth"
	WebsocketStream = "engine:websocket"

	websocketStreamMaxLen = 100_000
)

type outputTask struct {
	stream  string
	maxLen  int64
	payload string
}

// OutputPublisher implements matchengine.Output by hash-routing each
// publish onto one of N worker goroutines, preserving per-market ordering
// (every event for one event_id, or one event_id|market_id pair, always
// lands on the same worker) while letting independent markets fan out
// across workers.
type OutputPublisher struct {
	engineOutputRDB *redis.Client
	websocketRDB    *redis.Client

	chans []chan outputTask
}

// NewOutputPublisher starts workerCount writer goroutines, each draining
// its own channel into Redis. engineOutputRDB backs store/processor/depth;
// websocketRDB backs the capped websocket stream — the original system
// keeps these on separate Redis logical DBs so a slow websocket consumer
// can never back up the durable store/processor pipeline.
func NewOutputPublisher(ctx context.Context, engineOutputRDB, websocketRDB *redis.Client, workerCount int) *OutputPublisher {
	p := &OutputPublisher{
		engineOutputRDB: engineOutputRDB,
		websocketRDB:    websocketRDB,
		chans:           make([]chan outputTask, workerCount),
	}
	for i := 0; i < workerCount; i++ {
		ch := make(chan outputTask, 4096)
		p.chans[i] = ch
		go p.worker(ctx, i, ch)
	}
	return p
}

func (p *OutputPublisher) worker(ctx context.Context, id int, ch chan outputTask) {
	log.Info().Int("worker", id).Msg("output worker started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("output worker stopping")
			return
		case task, ok := <-ch:
			if !ok {
				return
			}
			if err := p.writeToRedis(ctx, task); err != nil {
				log.Error().Err(err).Int("worker", id).Str("stream", task.stream).Msg("failed to publish output message")
			}
		}
	}
}

func (p *OutputPublisher) writeToRedis(ctx context.Context, task outputTask) error {
	rdb := p.engineOutputRDB
	if task.stream == WebsocketStream {
		rdb = p.websocketRDB
	}
	_, err := redisstream.Add(ctx, rdb, task.stream, task.maxLen, task.payload)
	return err
}

func (p *OutputPublisher) route(hashKey, stream string, maxLen int64, payload string) {
	idx := hashWorker(hashKey, len(p.chans))
	p.chans[idx] <- outputTask{stream: stream, maxLen: maxLen, payload: payload}
}

// hashWorker maps a hash key onto one of n worker indices with FNV-64a, the
// same scheme the original output fan-out uses so that every event sharing
// a key lands on the same worker and keeps its per-market order.
func hashWorker(hashKey string, n int) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(hashKey))
	return int(h.Sum64() % uint64(n))
}

// PublishStoreEvent hash-routes on event_id alone: the store service only
// needs per-event, not per-market, ordering since its snapshot covers
// every market of an event together.
func (p *OutputPublisher) PublishStoreEvent(_ context.Context, ev matchengine.StoreEvent) error {
	wire := storeEventWire{Kind: ev.Kind, UpdateID: ev.UpdateID}
	if ev.Order != nil {
		wire.Order = orderWire{}.from(ev.Order)
	}
	if ev.OrderID != "" {
		wire.OrderID = ev.OrderID
		wire.Symbol = ev.Symbol
	}
	if ev.EventID != 0 {
		wire.EventID = ev.EventID
		wire.MarketID = ev.MarketID
	}
	wire.Market = ev.Market
	payload, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("marshal store event: %w", err)
	}
	hashKey := fmt.Sprintf("%d", hashKeyEventID(ev))
	p.route(hashKey, StoreStream, 0, string(payload))
	return nil
}

func hashKeyEventID(ev matchengine.StoreEvent) int64 {
	if ev.EventID != 0 {
		return ev.EventID
	}
	return ev.Symbol.EventID
}

// PublishProcessorEvent hash-routes on event_id|market_id so every order
// and trade belonging to one market serializes through a single processor
// worker, the way the trade-settlement batcher expects strict per-market
// ordering.
func (p *OutputPublisher) PublishProcessorEvent(_ context.Context, ev matchengine.ProcessorEvent) error {
	wire := processorEventWire{
		Kind: ev.Kind, OrderID: ev.OrderID, Symbol: ev.Symbol, UserID: ev.UserID, PrivyID: ev.PrivyID,
		Outcome: ev.Outcome, Side: ev.Side, Type: ev.Type, Quantity: ev.Quantity, Price: ev.Price,
		FilledQuantity: ev.FilledQuantity, Fills: ev.Fills, CancelledQuantity: ev.CancelledQuantity,
		CancelledVolume: ev.CancelledVolume, RejectReason: ev.RejectReason,
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("marshal processor event: %w", err)
	}
	hashKey := fmt.Sprintf("%d|%d", ev.Symbol.EventID, ev.Symbol.MarketID)
	p.route(hashKey, ProcessorStream, 0, string(payload))
	return nil
}

// PublishDepth hash-routes on event_id|market_id onto the uncapped depth
// stream (engine output Redis DB), since the depth cache service is
// expected to consume every snapshot.
func (p *OutputPublisher) PublishDepth(_ context.Context, snap model.DepthSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal depth snapshot: %w", err)
	}
	hashKey := fmt.Sprintf("%d|%d", snap.EventID, snap.MarketID)
	p.route(hashKey, DepthStream, 0, string(payload))
	return nil
}

// PublishPriceChanges hash-routes on event_id|market_id onto the capped
// websocket stream — only live subscribers read it, so old deltas can be
// safely discarded under memory pressure.
func (p *OutputPublisher) PublishPriceChanges(_ context.Context, changes []model.PriceLevelChange, eventID int64, marketID int16, updateID uint64, timestampMs int64) error {
	wire := priceChangesWire{EventID: eventID, MarketID: marketID, UpdateID: updateID, TimestampMs: timestampMs, Changes: changes}
	payload, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("marshal price changes: %w", err)
	}
	hashKey := fmt.Sprintf("%d|%d", eventID, marketID)
	p.route(hashKey, WebsocketStream, websocketStreamMaxLen, string(payload))
	return nil
}
