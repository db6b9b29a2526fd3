package processor

import (
	"encoding/json"
	"fmt"

	"github.com/purplecity/predictionmarket-sub000/internal/matchengine"
)

func decodeEvent(payload string) (matchengine.ProcessorEvent, error) {
	var wire processorEventWire
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return matchengine.ProcessorEvent{}, fmt.Errorf("unmarshal processor event: %w", err)
	}
	return matchengine.ProcessorEvent{
		Kind: wire.Kind, OrderID: wire.OrderID, Symbol: wire.Symbol, UserID: wire.UserID,
		PrivyID: wire.PrivyID, Outcome: wire.Outcome, Side: wire.Side, Type: wire.Type,
		Quantity: wire.Quantity, Price: wire.Price, FilledQuantity: wire.FilledQuantity,
		Fills: wire.Fills, CancelledQuantity: wire.CancelledQuantity,
		CancelledVolume: wire.CancelledVolume, RejectReason: wire.RejectReason,
	}, nil
}
