package model

import "github.com/shopspring/decimal"

// MarketOrderFields holds the quantities tracked for a market order,
// disjoint from the limit-order fields on LedgerOrder. Limit and market
// orders use separate column sets; the trade handler dispatches on
// (order_type, side) and unifying the two has historically leaked
// inconsistent state, so this type is never merged into the limit fields.
type MarketOrderFields struct {
	// TargetVolume is the USDC a market buy is sized by (TargetQuantity
	// is zero for a market buy).
	TargetVolume decimal.Decimal
	// TargetQuantity is the token amount a market sell is sized by
	// (TargetVolume is zero for a market sell).
	TargetQuantity decimal.Decimal

	FilledVolume   decimal.Decimal
	FilledQuantity decimal.Decimal

	CancelledVolume   decimal.Decimal
	CancelledQuantity decimal.Decimal
}

// LedgerOrder is the Postgres-resident order row: everything the engine
// tracks plus ledger-only bookkeeping (frozen volume, signed-order blob,
// update_id, cancellation counters, and the market-order field set).
type LedgerOrder struct {
	OrderID   string
	Symbol    Symbol
	Side      Side
	OrderType OrderType
	UserID    int64
	PrivyID   string
	Outcome   string

	Price     int32 // limit orders only; zero for market orders
	Quantity  decimal.Decimal
	Volume    decimal.Decimal // price*quantity, frozen USDC for a limit buy

	FilledQuantity    decimal.Decimal
	CancelledQuantity decimal.Decimal

	Market MarketOrderFields

	SignedOrderBlob []byte
	Status          OrderStatus
	UpdateID        int64
	CreatedAtMs     int64
}

// FilledBasis and TargetBasis implement the status-computation rule: for
// the taker's market order, basis is volume for a market buy and
// quantity for a market sell; for any limit order, basis is always
// quantity. Never branch on order_type elsewhere — this is the one place
// that decides it.
func (o LedgerOrder) FilledBasis() decimal.Decimal {
	if o.OrderType == Market {
		if o.Side == Buy {
			return o.Market.FilledVolume
		}
		return o.Market.FilledQuantity
	}
	return o.FilledQuantity
}

func (o LedgerOrder) TargetBasis() decimal.Decimal {
	if o.OrderType == Market {
		if o.Side == Buy {
			return o.Market.TargetVolume
		}
		return o.Market.TargetQuantity
	}
	return o.Quantity
}

// NextStatus: terminal stays terminal, otherwise Filled once basis reaches
// target, PartiallyFilled the first time basis
// moves off zero, unchanged otherwise.
func (o LedgerOrder) NextStatus() OrderStatus {
	if o.Status.IsTerminal() {
		return o.Status
	}
	basis := o.FilledBasis()
	target := o.TargetBasis()
	if basis.GreaterThanOrEqual(target) {
		return StatusFilled
	}
	if o.Status == StatusNew && basis.GreaterThan(decimal.Zero) {
		return StatusPartiallyFilled
	}
	return o.Status
}
