package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

func newResting(id string, side model.Side, price int32, qty uint64) *model.Order {
	o := model.NewOrder(id, model.Symbol{EventID: 1, MarketID: 1, TokenID: "tok0"}, side, model.Limit, price, qty, 1, "privy", "Yes", 0)
	return &o
}

func TestAddOrder_SingleLevel(t *testing.T) {
	b := New("tok0")
	require.NoError(t, b.AddOrder(newResting("o1", model.Buy, 5000, 10)))
	require.NoError(t, b.AddOrder(newResting("o2", model.Buy, 5000, 20)))

	level, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, int32(5000), level.Price)
	assert.Len(t, level.Orders, 2)
	assert.Equal(t, "o1", level.Orders[0].OrderID)
	assert.Equal(t, "o2", level.Orders[1].OrderID)
}

func TestBestBidAsk_Ordering(t *testing.T) {
	b := New("tok0")
	require.NoError(t, b.AddOrder(newResting("bid-low", model.Buy, 4000, 10)))
	require.NoError(t, b.AddOrder(newResting("bid-high", model.Buy, 6000, 10)))
	require.NoError(t, b.AddOrder(newResting("ask-high", model.Sell, 8000, 10)))
	require.NoError(t, b.AddOrder(newResting("ask-low", model.Sell, 7000, 10)))

	bestBid, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, int32(6000), bestBid.Price, "best bid is the highest resting price")

	bestAsk, ok := b.BestAsk()
	require.True(t, ok)
	assert.Equal(t, int32(7000), bestAsk.Price, "best ask is the lowest resting price")
}

func TestAddCrossOrder_OppositeSideComplementPrice(t *testing.T) {
	native := New("tok0")
	cross := New("tok1")

	buyYes := newResting("yes-buy", model.Buy, 6000, 10) // OppositeResultPrice = 4000
	require.NoError(t, native.AddOrder(buyYes))
	require.NoError(t, cross.AddCrossOrder(buyYes))

	// A buy on tok0 shows up as a resting ask on tok1 at the complement price.
	level, ok := cross.BestAsk()
	require.True(t, ok)
	assert.Equal(t, int32(4000), level.Price)
	assert.Equal(t, "yes-buy", level.Orders[0].OrderID)
}

func TestRemoveOrder(t *testing.T) {
	b := New("tok0")
	require.NoError(t, b.AddOrder(newResting("o1", model.Sell, 5000, 10)))
	require.NoError(t, b.AddOrder(newResting("o2", model.Sell, 5000, 20)))

	removed, err := b.RemoveOrder("o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", removed.OrderID)

	level, ok := b.BestAsk()
	require.True(t, ok)
	assert.Len(t, level.Orders, 1)
	assert.Equal(t, "o2", level.Orders[0].OrderID)

	_, err = b.RemoveOrder("o2")
	require.NoError(t, err)
	_, ok = b.BestAsk()
	assert.False(t, ok, "level should be deleted once its last order is removed")
}

func TestRemoveOrder_NotFound(t *testing.T) {
	b := New("tok0")
	_, err := b.RemoveOrder("missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestDepth_AggregatesQuantityPerLevel(t *testing.T) {
	b := New("tok0")
	require.NoError(t, b.AddOrder(newResting("o1", model.Buy, 5000, 10)))
	require.NoError(t, b.AddOrder(newResting("o2", model.Buy, 5000, 15)))
	require.NoError(t, b.AddOrder(newResting("o3", model.Buy, 4000, 5)))

	bids, _ := b.Depth(10)
	require.Len(t, bids, 2)
	assert.Equal(t, int32(5000), bids[0].Price)
	assert.Equal(t, uint64(25), bids[0].TotalQty)
	assert.Equal(t, int32(4000), bids[1].Price)
	assert.Equal(t, uint64(5), bids[1].TotalQty)
}
