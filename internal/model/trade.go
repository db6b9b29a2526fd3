package model

import "github.com/shopspring/decimal"

// Trade is one row of a match: a batch of 1+N rows (one taker, N makers)
// sharing BatchID. TradeVolume is only meaningful on the taker row: the
// summed USDC of the taker plus every maker on the taker's side.
type Trade struct {
	BatchID        string
	MatchTimestamp int64
	OrderID        string
	UserID         int64
	Symbol         Symbol
	Taker          bool
	Side           Side
	TradeVolume    decimal.Decimal
	AvgPrice       decimal.Decimal
	UsdcAmount     decimal.Decimal
	TokenAmount    decimal.Decimal
	OnchainHandled bool
	TxHash         *string
}

// Fill is what the match loop emits per maker hit: enough to build both the
// taker-side Trade rows and to update the resting maker order.
type Fill struct {
	MakerOrderID string
	MakerUserID  int64
	MakerPrivyID string
	MakerOutcome string
	MakerSymbol  Symbol
	MakerSide    Side

	MatchPrice    int32 // the maker's stored price, used as-is
	MatchQuantity uint64

	MakerQuantityBefore uint64
	MakerFilledAfter    uint64
}

// DepthSnapshot is the per-market, per-second depth output described in
// one per market, carrying both outcome tokens.
type DepthSnapshot struct {
	EventID     int64
	MarketID    int16
	UpdateID    uint64
	TimestampMs int64
	Tokens      map[string]TokenDepth
}

type TokenDepth struct {
	LatestTradePrice string
	Bids             []PriceLevel
	Asks             []PriceLevel
}

type PriceLevel struct {
	Price     int32
	TotalQty  uint64
	TotalSize decimal.Decimal
}

// PriceLevelChange is one entry of the delta emitted alongside a
// DepthSnapshot when a level's total changed since the previous tick (spec
// §4.1 "Per-second snapshotting"). Removed is true when TotalQty dropped to
// zero and the level should be deleted from subscriber-side state instead of
// upserted.
type PriceLevelChange struct {
	TokenID  string
	Side     Side
	Price    int32
	TotalQty uint64
	Removed  bool
}
