package onchain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// onchainDecimals is the fixed-point scale every token amount uses
// on-chain (18 decimals, the ERC-20 convention); the ledger works in plain
// decimal.Decimal, so every amount crossing the chain boundary is
// normalized on the way in and scaled back up on the way out.
const onchainDecimals = 18

var onchainScale = decimal.New(1, onchainDecimals)

// NormalizeAmount converts a raw on-chain integer amount string (18
// decimals) into the ledger's plain decimal representation.
func NormalizeAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse onchain amount %q: %w", raw, err)
	}
	return amount.Div(onchainScale), nil
}

// ScaleToOnchain converts a ledger-scale decimal.Decimal back into the
// raw integer-string form a settlement transaction sends on-chain.
func ScaleToOnchain(amount decimal.Decimal) string {
	return amount.Mul(onchainScale).Truncate(0).String()
}
