package matchengine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/tomb.v2"
)

const cancelOrdersBatchSize = 500

// Run drives one market's engine goroutine: admitted orders/cancels off
// Inbox, a 1Hz snapshot tick, and graceful drain on tomb death. It returns
// when t is killed, after cancelling every resting order in batches — the
// same shape as the original engine's tokio::select! loop, expressed with
// tomb instead of a broadcast exit channel.
func (e *MatchEngine) Run(t *tomb.Tomb) error {
	ctx := context.Background()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case ctrl, ok := <-e.Inbox:
			if !ok {
				return e.drain(ctx)
			}
			e.handleControl(ctx, ctrl)
		case tick := <-ticker.C:
			e.handleSnapshotTick(ctx, tick.UnixMilli())
		case <-t.Dying():
			return e.drain(ctx)
		}
	}
}

func (e *MatchEngine) handleControl(ctx context.Context, ctrl Control) {
	switch {
	case ctrl.Submit != nil:
		if err := e.SubmitOrder(ctx, ctrl.Submit); err != nil {
			// Validate runs before any matching, so rejection always
			// precedes a fill: the full submitted quantity/volume is what
			// gets unfrozen, nothing was traded yet.
			if pubErr := e.out.PublishProcessorEvent(ctx, ProcessorEvent{
				Kind:              ProcessorOrderRejected,
				OrderID:           ctrl.Submit.OrderID,
				Symbol:            ctrl.Submit.Symbol,
				UserID:            ctrl.Submit.UserID,
				PrivyID:           ctrl.Submit.PrivyID,
				Outcome:           ctrl.Submit.Outcome,
				Side:              ctrl.Submit.Side,
				Type:              ctrl.Submit.OrderType,
				RejectReason:      err.Error(),
				CancelledQuantity: formatQty(ctrl.Submit.Quantity),
				CancelledVolume:   freezeVolume(ctrl.Submit.Price, ctrl.Submit.Quantity).String(),
			}); pubErr != nil {
				log.Error().Err(pubErr).Str("order_id", ctrl.Submit.OrderID).Msg("publish order rejected event")
			}
		}
	case ctrl.Cancel != nil:
		if err := e.CancelOrder(ctx, ctrl.Cancel.OrderID); err != nil {
			log.Error().Err(err).Str("order_id", ctrl.Cancel.OrderID).Msg("cancel order failed")
		}
	}
}

// drain cancels every resting order across both tokens, chunked into
// pipelined batches, then returns — the engine's graceful-shutdown
// contract so no order is left silently resting after the goroutine dies.
func (e *MatchEngine) drain(ctx context.Context) error {
	all := make([]string, 0, len(e.orders0)+len(e.orders1))
	for id := range e.orders0 {
		all = append(all, id)
	}
	for id := range e.orders1 {
		all = append(all, id)
	}
	if len(all) == 0 {
		log.Info().Int64("event_id", e.EventID).Int16("market_id", e.MarketID).Msg("engine shutting down, no resting orders")
		return nil
	}

	log.Info().Int64("event_id", e.EventID).Int16("market_id", e.MarketID).Int("count", len(all)).Msg("cancelling resting orders before shutdown")
	for start := 0; start < len(all); start += cancelOrdersBatchSize {
		end := min(start+cancelOrdersBatchSize, len(all))
		for _, id := range all[start:end] {
			if err := e.CancelOrder(ctx, id); err != nil {
				log.Error().Err(err).Str("order_id", id).Msg("drain cancel failed")
			}
		}
	}
	return nil
}
