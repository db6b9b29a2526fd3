package processor

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/purplecity/predictionmarket-sub000/internal/ledger"
	"github.com/purplecity/predictionmarket-sub000/internal/model"
	"github.com/purplecity/predictionmarket-sub000/internal/onchain"
)

func TestChunkFills_SplitsIntoFixedSizeGroups(t *testing.T) {
	fills := make([]model.Fill, 5)
	chunks := chunkFills(fills, 2)
	assert.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 2)
	assert.Len(t, chunks[1], 2)
	assert.Len(t, chunks[2], 1)
}

func TestChunkFills_ZeroSizeReturnsOneChunk(t *testing.T) {
	fills := make([]model.Fill, 3)
	chunks := chunkFills(fills, 0)
	assert.Len(t, chunks, 1)
	assert.Len(t, chunks[0], 3)
}

func TestChunkFills_EmptyInput(t *testing.T) {
	assert.Empty(t, chunkFills(nil, 10))
}

func TestLegAmounts_BuySendsUsdcReceivesToken(t *testing.T) {
	fill, receive := legAmounts(model.Buy, decimal.NewFromInt(50), decimal.NewFromInt(100))
	assert.True(t, fill.Equal(decimal.NewFromInt(50)))
	assert.True(t, receive.Equal(decimal.NewFromInt(100)))
}

func TestLegAmounts_SellSendsTokenReceivesUsdc(t *testing.T) {
	fill, receive := legAmounts(model.Sell, decimal.NewFromInt(50), decimal.NewFromInt(100))
	assert.True(t, fill.Equal(decimal.NewFromInt(100)))
	assert.True(t, receive.Equal(decimal.NewFromInt(50)))
}

func TestPriceOf_DividesAndTruncates(t *testing.T) {
	assert.Equal(t, "0.5", priceOf(decimal.NewFromInt(50), decimal.NewFromInt(100)))
}

func TestPriceOf_ZeroTokenAmountIsZero(t *testing.T) {
	assert.Equal(t, "0", priceOf(decimal.NewFromInt(50), decimal.Zero))
}

func TestBuildSettlementBatch_CarriesTakerAndMakers(t *testing.T) {
	taker := ledger.TradeParticipant{
		OrderID: "taker-1", UserID: 1, TokenID: "T0", Side: model.Buy,
		UsdcAmount: decimal.NewFromInt(50), TokenAmount: decimal.NewFromInt(100),
	}
	makers := []ledger.TradeParticipant{{
		OrderID: "maker-1", UserID: 2, TokenID: "T0", Side: model.Sell,
		UsdcAmount: decimal.NewFromInt(50), TokenAmount: decimal.NewFromInt(100),
	}}
	sym := model.Symbol{EventID: 7, MarketID: 1, TokenID: "T0"}
	batch := buildSettlementBatch("trade-1", sym, taker, makers)

	assert.Equal(t, "trade-1", batch.TradeID)
	assert.Equal(t, int64(7), batch.EventID)
	assert.Equal(t, onchain.ScaleToOnchain(decimal.NewFromInt(50)), batch.Taker.FillAmount)
	assert.Len(t, batch.Makers, 1)
	assert.Equal(t, onchain.ScaleToOnchain(decimal.NewFromInt(100)), batch.Makers[0].FillAmount)
}
