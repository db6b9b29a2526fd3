package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

func TestSettleTokenID(t *testing.T) {
	assert.Equal(t, model.USDCTokenID, settleTokenID(TradeParticipant{Side: model.Buy, TokenID: "TOKEN_0"}))
	assert.Equal(t, "TOKEN_0", settleTokenID(TradeParticipant{Side: model.Sell, TokenID: "TOKEN_0"}))
}

func TestZeroIfNil(t *testing.T) {
	assert.True(t, decimal.Zero.Equal(zeroIfNil(nil)))

	five := decimal.NewFromInt(5)
	assert.True(t, five.Equal(zeroIfNil(&five)))
}

func TestComputeTradeVolume(t *testing.T) {
	taker := TradeParticipant{OrderID: "taker", Side: model.Buy, UsdcAmount: decimal.NewFromInt(100)}
	sameSide := TradeParticipant{OrderID: "maker-same", Side: model.Buy, UsdcAmount: decimal.NewFromInt(40)}
	oppositeSide := TradeParticipant{OrderID: "maker-opp", Side: model.Sell, UsdcAmount: decimal.NewFromInt(999)}

	got := computeTradeVolume(taker, []TradeParticipant{sameSide, oppositeSide})
	assert.True(t, decimal.NewFromInt(140).Equal(got), "only same-side makers add to the taker's trade_volume")
}
