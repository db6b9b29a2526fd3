package model

import "github.com/shopspring/decimal"

// AssetHistoryType classifies one ledger-visible balance mutation, the way
// the asset service's audit trail groups them.
type AssetHistoryType int

const (
	AssetDeposit AssetHistoryType = iota
	AssetWithdraw
	AssetOrderFreeze
	AssetOrderUnfreeze
	AssetTrade
	AssetSplit
	AssetMerge
	AssetRedeem
)

// AssetHistory is one row of the balance audit trail: every Deposit,
// Withdraw, freeze/unfreeze, Trade, Split, Merge and Redeem writes exactly
// one of these in the same transaction as the balance mutation itself, so
// the trail can never drift from the balances it explains.
type AssetHistory struct {
	UserID       int64
	TokenID      string
	Type         AssetHistoryType
	Amount       decimal.Decimal // signed: positive credits, negative debits
	BalanceAfter decimal.Decimal
	ReferenceID  string // order id, trade id, or onchain tx hash
	CreatedAtMs  int64
}
