// Package model holds the domain types shared across the engine, ledger,
// pipeline and store: markets, orders (engine- and ledger-side), positions,
// trades and depth snapshots.
package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// TokenIndex selects which of a market's two complementary outcome tokens a
// value refers to.
type TokenIndex int

const (
	Token0 TokenIndex = iota
	Token1
)

// Symbol identifies one tradable token within one market within one event.
// It is the engine's natural book key and the hash key output fan-out uses
// for per-event/per-market ordering.
type Symbol struct {
	EventID  int64
	MarketID int16
	TokenID  string
}

func (s Symbol) String() string {
	return fmt.Sprintf("%d|%d|%s", s.EventID, s.MarketID, s.TokenID)
}

// ParseSymbol parses the "event|market|token" form String produces, the
// storage shadow's map key.
func ParseSymbol(s string) (Symbol, error) {
	parts := strings.SplitN(s, "|", 3)
	if len(parts) != 3 {
		return Symbol{}, fmt.Errorf("malformed symbol key %q", s)
	}
	eventID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Symbol{}, fmt.Errorf("malformed symbol key %q: %w", s, err)
	}
	marketID, err := strconv.ParseInt(parts[1], 10, 16)
	if err != nil {
		return Symbol{}, fmt.Errorf("malformed symbol key %q: %w", s, err)
	}
	return Symbol{EventID: eventID, MarketID: int16(marketID), TokenID: parts[2]}, nil
}

// MarketKey identifies a market regardless of token, used to route commands
// to a single MatchEngine instance.
type MarketKey struct {
	EventID  int64
	MarketID int16
}

func (k MarketKey) String() string {
	return fmt.Sprintf("%d|%d", k.EventID, k.MarketID)
}

// Market is the static metadata of one binary-outcome market: two
// complementary tokens whose prices must sum to 1.000 (10000 in engine
// integer units).
type Market struct {
	EventID      int64
	MarketID     int16
	TokenIDs     [2]string
	OutcomeNames [2]string
	EndTimeMs    *int64 // nil means the market never expires on its own
}

// Key returns the MarketKey this market is addressed by.
func (m Market) Key() MarketKey {
	return MarketKey{EventID: m.EventID, MarketID: m.MarketID}
}

// TokenSymbol builds the Symbol for one of the market's two tokens.
func (m Market) TokenSymbol(idx TokenIndex) Symbol {
	return Symbol{EventID: m.EventID, MarketID: m.MarketID, TokenID: m.TokenIDs[idx]}
}

// OtherIndex returns the complement of idx for a binary market.
func OtherIndex(idx TokenIndex) TokenIndex {
	if idx == Token0 {
		return Token1
	}
	return Token0
}

// USDCTokenID is the sentinel token id identifying the USDC cash position,
// distinct from any outcome token id and carrying no event/market.
const USDCTokenID = "USDC"

// MinPrice and MaxPrice bound the engine integer price domain: 10000
// represents 1.000, so a price of p means p/10000 real USDC per token.
const (
	MinPrice   int32 = 100
	MaxPrice   int32 = 9900
	PriceScale int32 = 10000
)

// QuantityScale is the fixed-point scale every engine quantity is stored
// in internally (real_qty*100), so a quantity of q means q/100 tokens.
const QuantityScale int64 = 100

// ComplementPrice returns 10000-p, the price a token's complement outcome
// must be quoted at so that price(T0)+price(T1)=1.
func ComplementPrice(p int32) int32 {
	return PriceScale - p
}

// PriceToDecimal and QuantityToDecimal convert the engine's fixed-point
// fill fields into plain decimal.Decimal, the representation every ledger
// amount is expressed in once a fill leaves the matching engine.
func PriceToDecimal(price int32) decimal.Decimal {
	return decimal.New(int64(price), 0).Div(decimal.New(int64(PriceScale), 0))
}

func QuantityToDecimal(qty uint64) decimal.Decimal {
	return decimal.New(int64(qty), 0).Div(decimal.New(QuantityScale, 0))
}
