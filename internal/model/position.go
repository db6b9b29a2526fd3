package model

import "github.com/shopspring/decimal"

// Position is one user's holding of one token (an outcome token, or USDC
// when TokenID==USDCTokenID, which carries no event/market). balance>=0 is
// enforced everywhere except during onchain settlement reconciliation
// (deposit/withdraw/split/merge originate onchain and may need to be
// reconciled later); frozen_balance>=0 holds strictly at all times.
type Position struct {
	UserID   int64
	TokenID  string
	EventID  *int64
	MarketID *int16

	Balance       decimal.Decimal
	FrozenBalance decimal.Decimal

	// UsdcCost, AvgPrice, Redeemed, Payout are nil for the USDC sentinel
	// position and set for outcome-token positions.
	UsdcCost *decimal.Decimal
	AvgPrice *decimal.Decimal
	Redeemed *bool
	Payout   *decimal.Decimal

	// RedeemedAtMs is set once, the first time Redeemed flips true; zero
	// until then.
	RedeemedAtMs int64

	UpdateID int64
}

// IsUSDC reports whether this position is the USDC cash leg.
func (p Position) IsUSDC() bool {
	return p.TokenID == USDCTokenID
}

// AvgPriceTruncated8 recomputes avg_price = usdc_cost/(balance+frozen),
// truncated to 8 decimal places. Used by Split, Merge, and post-onchain
// trade settlement whenever a token position's cost basis changes.
func AvgPriceTruncated8(usdcCost, balance, frozen decimal.Decimal) decimal.Decimal {
	denom := balance.Add(frozen)
	if denom.IsZero() {
		return decimal.Zero
	}
	return usdcCost.DivRound(denom, 8).Truncate(8)
}
