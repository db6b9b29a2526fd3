package processor

import (
	"github.com/purplecity/predictionmarket-sub000/internal/matchengine"
	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

// processorEventWire mirrors the unexported wire shape enginepipe.
// OutputPublisher.PublishProcessorEvent marshals — the two packages don't
// share a type so this field list is kept in lockstep with it by hand, the
// same way store/consumer.go mirrors the store event wire.
type processorEventWire struct {
	Kind    matchengine.ProcessorEventKind
	OrderID string
	Symbol  model.Symbol
	UserID  int64
	PrivyID string
	Outcome string
	Side    model.Side
	Type    model.OrderType

	Quantity string `json:",omitempty"`
	Price    string `json:",omitempty"`

	FilledQuantity string `json:",omitempty"`

	Fills []model.Fill `json:",omitempty"`

	CancelledQuantity string `json:",omitempty"`
	CancelledVolume   string `json:",omitempty"`
	RejectReason      string `json:",omitempty"`
}
