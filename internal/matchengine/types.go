// Package matchengine implements the per-market matching engine: two
// order books linked by cross-outcome insertion, price-time matching with
// self-trade abort, and the 1Hz depth snapshot / price-level-delta tick.
package matchengine

import (
	"context"

	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

// StoreEventKind tags one mutation of the order-shadow the store service
// keeps; the store dispatches on Kind the same way the original storage
// layer dispatches on OrderChangeEvent's variant.
type StoreEventKind int

const (
	StoreOrderCreated StoreEventKind = iota
	StoreOrderUpdated
	StoreOrderFilled
	StoreOrderCancelled
	StoreMarketUpdateID
	StoreEventAdded
	StoreEventRemoved
)

// StoreEvent is one entry on the order-change stream the store consumes to
// keep its in-memory shadow (and periodic snapshot) current.
type StoreEvent struct {
	Kind     StoreEventKind
	Order    *model.Order // set for Created/Updated
	OrderID  string       // set for Filled/Cancelled
	Symbol   model.Symbol
	EventID  int64
	MarketID int16
	UpdateID uint64 // set for MarketUpdateID
	Market   *model.Market // set for EventAdded
}

// ProcessorEventKind tags one entry the processor consumes to run ledger
// RPCs and build onchain settlement batches.
type ProcessorEventKind int

const (
	ProcessorOrderSubmitted ProcessorEventKind = iota
	ProcessorOrderTraded
	ProcessorOrderCancelled
	ProcessorOrderRejected
)

// ProcessorEvent carries everything the processor needs for one order's
// lifecycle transition: a resting submission, a taker's fills, a
// cancellation (explicit or residual), or a rejection.
type ProcessorEvent struct {
	Kind ProcessorEventKind

	OrderID  string
	Symbol   model.Symbol
	UserID   int64
	PrivyID  string
	Outcome  string
	Side     model.Side
	Type     model.OrderType

	Quantity string
	Price    string

	// OrderSubmitted
	FilledQuantity string

	// OrderTraded
	Fills []model.Fill

	// OrderCancelled / OrderRejected
	CancelledQuantity string
	CancelledVolume   string
	RejectReason      string
}

// Output is everything the engine needs to publish downstream; the real
// implementation (package enginepipe) hash-routes each call onto one of M
// Redis stream writers. Defined here, not in enginepipe, so matchengine
// never imports the transport it runs on top of.
type Output interface {
	PublishStoreEvent(ctx context.Context, ev StoreEvent) error
	PublishProcessorEvent(ctx context.Context, ev ProcessorEvent) error
	PublishDepth(ctx context.Context, snap model.DepthSnapshot) error
	PublishPriceChanges(ctx context.Context, changes []model.PriceLevelChange, eventID int64, marketID int16, updateID uint64, timestampMs int64) error
}

// Control is one admitted command for a market's engine goroutine.
type Control struct {
	Submit *model.Order
	Cancel *CancelRequest
}

type CancelRequest struct {
	OrderID string
}
