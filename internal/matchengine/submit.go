package matchengine

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

// SubmitOrder runs one taker's full lifecycle: match against the book,
// then dispose of whatever remains per order type. A limit remainder
// rests (inserted into both its native and cross book); a market
// remainder is always cancelled, since a market order must fill now or
// not at all. A self-trade abort cancels the ENTIRE remainder regardless
// of order type — the taker never partially rests past a self-trade.
func (e *MatchEngine) SubmitOrder(ctx context.Context, taker *model.Order) error {
	if err := e.Validate(taker); err != nil {
		return err
	}

	e.orderSeq++
	taker.Seq = e.orderSeq

	result, err := e.matchOrder(ctx, taker)
	if err != nil {
		return err
	}
	taker.Fill(taker.Quantity - result.remaining)

	if len(result.fills) > 0 {
		e.updateLatestTradePrice(taker, result.fills)
		if err := e.out.PublishProcessorEvent(ctx, ProcessorEvent{
			Kind:    ProcessorOrderTraded,
			OrderID: taker.OrderID,
			Symbol:  taker.Symbol,
			UserID:  taker.UserID,
			PrivyID: taker.PrivyID,
			Outcome: taker.Outcome,
			Side:    taker.Side,
			Type:    taker.OrderType,
			Fills:   result.fills,
		}); err != nil {
			log.Error().Err(err).Str("order_id", taker.OrderID).Msg("publish order traded event")
		}
	}

	if taker.Remaining == 0 {
		return nil
	}

	if result.hasSelfTrade {
		return e.publishResidualCancel(ctx, taker, result.fills)
	}

	if taker.OrderType == model.Limit {
		return e.restTaker(ctx, taker)
	}
	return e.publishResidualCancel(ctx, taker, result.fills)
}

// restTaker inserts a limit remainder into both its native and cross book,
// publishing the submission and the store's order-created event.
func (e *MatchEngine) restTaker(ctx context.Context, taker *model.Order) error {
	native, cross, nativeOrders := e.symbolBooks(taker)
	if err := native.AddOrder(taker); err != nil {
		return err
	}
	if err := cross.AddCrossOrder(taker); err != nil {
		return err
	}
	nativeOrders[taker.OrderID] = taker

	if err := e.out.PublishProcessorEvent(ctx, ProcessorEvent{
		Kind:           ProcessorOrderSubmitted,
		OrderID:        taker.OrderID,
		Symbol:         taker.Symbol,
		UserID:         taker.UserID,
		PrivyID:        taker.PrivyID,
		Outcome:        taker.Outcome,
		Side:           taker.Side,
		Type:           taker.OrderType,
		FilledQuantity: formatQty(taker.Filled),
	}); err != nil {
		log.Error().Err(err).Str("order_id", taker.OrderID).Msg("publish order submitted event")
	}

	return e.out.PublishStoreEvent(ctx, StoreEvent{Kind: StoreOrderCreated, Order: taker, Symbol: taker.Symbol})
}

// publishResidualCancel emits a cancellation for whatever quantity a taker
// could not fill — a market remainder, or anything left after a self-trade
// abort. The resting order was never inserted, so no store event is owed.
// cancelled_volume is what froze at submission minus what actually traded
// in this same call, so a partially-filled self-trade abort only unfreezes
// the untraded leftover, never the executed portion.
func (e *MatchEngine) publishResidualCancel(ctx context.Context, taker *model.Order, fills []model.Fill) error {
	cancelledVolume := freezeVolume(taker.Price, taker.Quantity).Sub(filledVolume(fills))
	return e.out.PublishProcessorEvent(ctx, ProcessorEvent{
		Kind:              ProcessorOrderCancelled,
		OrderID:           taker.OrderID,
		Symbol:            taker.Symbol,
		UserID:            taker.UserID,
		PrivyID:           taker.PrivyID,
		Outcome:           taker.Outcome,
		Side:              taker.Side,
		Type:              taker.OrderType,
		CancelledQuantity: formatQty(taker.Remaining),
		CancelledVolume:   cancelledVolume.String(),
	})
}

// CancelOrder removes a resting order (native + cross) and publishes the
// cancellation. Returns model.ErrOrderNotFound if orderID isn't resting in
// either book.
func (e *MatchEngine) CancelOrder(ctx context.Context, orderID string) error {
	order, ok := e.orders0[orderID]
	if !ok {
		order, ok = e.orders1[orderID]
	}
	if !ok {
		return model.ErrOrderNotFound
	}

	native, cross, nativeOrders := e.symbolBooks(order)
	if _, err := native.RemoveOrder(orderID); err != nil {
		return err
	}
	if _, err := cross.RemoveOrder(orderID); err != nil {
		return err
	}
	delete(nativeOrders, orderID)

	if err := e.out.PublishStoreEvent(ctx, StoreEvent{Kind: StoreOrderCancelled, OrderID: orderID, Symbol: order.Symbol}); err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("publish order cancelled store event")
	}

	return e.out.PublishProcessorEvent(ctx, ProcessorEvent{
		Kind:              ProcessorOrderCancelled,
		OrderID:           orderID,
		Symbol:            order.Symbol,
		UserID:            order.UserID,
		PrivyID:           order.PrivyID,
		Outcome:           order.Outcome,
		Side:              order.Side,
		Type:              order.OrderType,
		CancelledQuantity: formatQty(order.Remaining),
		CancelledVolume:   freezeVolume(order.Price, order.Remaining).String(),
	})
}

// updateLatestTradePrice records the last fill's match price on this
// order's native token and the complement price on the other token,
// mirroring the original engine's "1 - taker_price" bookkeeping.
func (e *MatchEngine) updateLatestTradePrice(taker *model.Order, fills []model.Fill) {
	last := fills[len(fills)-1]
	price := formatPrice(last.MatchPrice)
	other := formatPrice(model.ComplementPrice(last.MatchPrice))
	if taker.Symbol.TokenID == e.Token0ID {
		e.token0LatestTradePrice = price
		e.token1LatestTradePrice = other
	} else {
		e.token1LatestTradePrice = price
		e.token0LatestTradePrice = other
	}
}
