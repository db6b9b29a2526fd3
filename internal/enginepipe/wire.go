package enginepipe

import (
	"github.com/purplecity/predictionmarket-sub000/internal/matchengine"
	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

// orderWire is the JSON shape of a resting order as it crosses the wire to
// the store service — plain fields only, no behavior, independent of
// model.Order's in-memory representation.
type orderWire struct {
	OrderID             string
	Symbol              model.Symbol
	Side                model.Side
	OrderType           model.OrderType
	Price               int32
	OppositeResultPrice int32
	Quantity            uint64
	Filled              uint64
	Remaining           uint64
	Status              model.OrderStatus
	UserID              int64
	PrivyID             string
	Outcome             string
	Timestamp           int64
	Seq                 uint64
}

func (orderWire) from(o *model.Order) orderWire {
	return orderWire{
		OrderID: o.OrderID, Symbol: o.Symbol, Side: o.Side, OrderType: o.OrderType,
		Price: o.Price, OppositeResultPrice: o.OppositeResultPrice, Quantity: o.Quantity,
		Filled: o.Filled, Remaining: o.Remaining, Status: o.Status, UserID: o.UserID,
		PrivyID: o.PrivyID, Outcome: o.Outcome, Timestamp: o.Timestamp, Seq: o.Seq,
	}
}

func (w orderWire) toOrder() model.Order {
	return model.Order{
		OrderID: w.OrderID, Symbol: w.Symbol, Side: w.Side, OrderType: w.OrderType,
		Price: w.Price, OppositeResultPrice: w.OppositeResultPrice, Quantity: w.Quantity,
		Filled: w.Filled, Remaining: w.Remaining, Status: w.Status, UserID: w.UserID,
		PrivyID: w.PrivyID, Outcome: w.Outcome, Timestamp: w.Timestamp, Seq: w.Seq,
	}
}

type storeEventWire struct {
	Kind     matchengine.StoreEventKind
	Order    orderWire     `json:",omitempty"`
	OrderID  string        `json:",omitempty"`
	Symbol   model.Symbol  `json:",omitempty"`
	EventID  int64         `json:",omitempty"`
	MarketID int16         `json:",omitempty"`
	UpdateID uint64        `json:",omitempty"`
	Market   *model.Market `json:",omitempty"`
}

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

type priceChangesWire struct {
	EventID     int64
	MarketID    int16
	UpdateID    uint64
	TimestampMs int64
	Changes     []model.PriceLevelChange
}
