package matchengine

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

const defaultDepthLevels = 50

// handleSnapshotTick runs once per second: bump update_id, build a fresh
// depth snapshot for both tokens, diff it against the previous tick to
// find the price levels that changed, and publish both the full snapshot
// (for the depth cache) and the delta (for websocket subscribers). Since
// every order is cross-inserted at submission time, each token's book
// already reflects the complement token's resting liquidity — no extra
// merge step is needed here.
func (e *MatchEngine) handleSnapshotTick(ctx context.Context, timestampMs int64) {
	e.updateID++

	if err := e.out.PublishStoreEvent(ctx, StoreEvent{
		Kind: StoreMarketUpdateID, EventID: e.EventID, MarketID: e.MarketID, UpdateID: e.updateID,
	}); err != nil {
		log.Error().Err(err).Int64("event_id", e.EventID).Msg("publish market update_id")
	}

	bids0, asks0 := e.book0.Depth(defaultDepthLevels)
	bids1, asks1 := e.book1.Depth(defaultDepthLevels)

	snap := model.DepthSnapshot{
		EventID:     e.EventID,
		MarketID:    e.MarketID,
		UpdateID:    e.updateID,
		TimestampMs: timestampMs,
		Tokens: map[string]model.TokenDepth{
			e.Token0ID: {LatestTradePrice: e.token0LatestTradePrice, Bids: bids0, Asks: asks0},
			e.Token1ID: {LatestTradePrice: e.token1LatestTradePrice, Bids: bids1, Asks: asks1},
		},
	}

	if err := e.out.PublishDepth(ctx, snap); err != nil {
		log.Error().Err(err).Int64("event_id", e.EventID).Msg("publish depth snapshot")
	}

	current0 := toLevelMap(model.Buy, bids0)
	mergeLevelMap(current0, model.Sell, asks0)
	current1 := toLevelMap(model.Buy, bids1)
	mergeLevelMap(current1, model.Sell, asks1)

	changes := diffLevels(e.lastDepth0, current0, e.Token0ID)
	changes = append(changes, diffLevels(e.lastDepth1, current1, e.Token1ID)...)
	e.lastDepth0 = current0
	e.lastDepth1 = current1

	if len(changes) == 0 {
		return
	}
	if err := e.out.PublishPriceChanges(ctx, changes, e.EventID, e.MarketID, e.updateID, timestampMs); err != nil {
		log.Error().Err(err).Int64("event_id", e.EventID).Msg("publish price level changes")
	}
}

func toLevelMap(side model.Side, levels []model.PriceLevel) map[levelKey]uint64 {
	m := make(map[levelKey]uint64, len(levels))
	mergeLevelMap(m, side, levels)
	return m
}

func mergeLevelMap(m map[levelKey]uint64, side model.Side, levels []model.PriceLevel) {
	for _, l := range levels {
		m[levelKey{side: side, price: l.Price}] = l.TotalQty
	}
}

// diffLevels reports every level whose quantity changed since last, plus
// every level present in last but gone from current (emitted with
// TotalQty=0, Removed=true so subscribers delete it instead of upserting
// a zero-size level).
func diffLevels(last, current map[levelKey]uint64, tokenID string) []model.PriceLevelChange {
	var changes []model.PriceLevelChange
	for k, qty := range current {
		if last[k] != qty {
			changes = append(changes, model.PriceLevelChange{TokenID: tokenID, Side: k.side, Price: k.price, TotalQty: qty})
		}
	}
	for k, qty := range last {
		if _, ok := current[k]; !ok && qty > 0 {
			changes = append(changes, model.PriceLevelChange{TokenID: tokenID, Side: k.side, Price: k.price, TotalQty: 0, Removed: true})
		}
	}
	return changes
}
