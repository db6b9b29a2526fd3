package matchengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

type recordingOutput struct {
	storeEvents     []StoreEvent
	processorEvents []ProcessorEvent
	depths          []model.DepthSnapshot
	priceChanges    [][]model.PriceLevelChange
}

func (r *recordingOutput) PublishStoreEvent(_ context.Context, ev StoreEvent) error {
	r.storeEvents = append(r.storeEvents, ev)
	return nil
}

func (r *recordingOutput) PublishProcessorEvent(_ context.Context, ev ProcessorEvent) error {
	r.processorEvents = append(r.processorEvents, ev)
	return nil
}

func (r *recordingOutput) PublishDepth(_ context.Context, snap model.DepthSnapshot) error {
	r.depths = append(r.depths, snap)
	return nil
}

func (r *recordingOutput) PublishPriceChanges(_ context.Context, changes []model.PriceLevelChange, _ int64, _ int16, _ uint64, _ int64) error {
	r.priceChanges = append(r.priceChanges, changes)
	return nil
}

func sym(tokenID string) model.Symbol {
	return model.Symbol{EventID: 1, MarketID: 1, TokenID: tokenID}
}

func newTestEngine() (*MatchEngine, *recordingOutput) {
	out := &recordingOutput{}
	eng := New(1, 1, "tok0", "tok1", 1024, out)
	return eng, out
}

func TestSubmitOrder_RestsWhenNoMatch(t *testing.T) {
	eng, out := newTestEngine()
	order := model.NewOrder("o1", sym("tok0"), model.Buy, model.Limit, 4000, 1000, 10, "p10", "Yes", 0)

	require.NoError(t, eng.SubmitOrder(context.Background(), &order))
	assert.Equal(t, model.StatusNew, order.Status)
	assert.Equal(t, uint64(1000), order.Remaining)

	_, ok := eng.book0.BestBid()
	assert.True(t, ok, "order should rest in its native book")
	_, ok = eng.book1.BestAsk()
	assert.True(t, ok, "order should cross-insert into the complement book")

	require.Len(t, out.processorEvents, 1)
	assert.Equal(t, ProcessorOrderSubmitted, out.processorEvents[0].Kind)
}

func TestSubmitOrder_CrossTokenMatch(t *testing.T) {
	eng, out := newTestEngine()

	// A resting buy of token0 Yes at 6000 cross-inserts as an ask on token1
	// at the complement price 4000 (buying Yes at 0.60 is equivalent
	// liquidity to offering No at 0.40).
	maker := model.NewOrder("maker", sym("tok0"), model.Buy, model.Limit, 6000, 1000, 10, "p10", "Yes", 0)
	require.NoError(t, eng.SubmitOrder(context.Background(), &maker))

	// A buy of token1 (No) at 4000 should cross against maker's cross-inserted ask.
	taker := model.NewOrder("taker", sym("tok1"), model.Buy, model.Limit, 4000, 1000, 20, "p20", "No", 0)
	require.NoError(t, eng.SubmitOrder(context.Background(), &taker))

	assert.Equal(t, model.StatusFilled, taker.Status)
	assert.Equal(t, uint64(0), taker.Remaining)

	var traded bool
	for _, ev := range out.processorEvents {
		if ev.Kind == ProcessorOrderTraded && ev.OrderID == "taker" {
			traded = true
			require.Len(t, ev.Fills, 1)
			assert.Equal(t, "maker", ev.Fills[0].MakerOrderID)
			assert.Equal(t, uint64(1000), ev.Fills[0].MatchQuantity)
		}
	}
	assert.True(t, traded, "expected an OrderTraded processor event for the taker")
}

func TestSubmitOrder_SelfTradeCancelsEntireRemainder(t *testing.T) {
	eng, out := newTestEngine()

	maker := model.NewOrder("maker", sym("tok0"), model.Sell, model.Limit, 5000, 1000, 99, "p99", "Yes", 0)
	require.NoError(t, eng.SubmitOrder(context.Background(), &maker))

	taker := model.NewOrder("taker", sym("tok0"), model.Buy, model.Limit, 5000, 1000, 99, "p99", "Yes", 0)
	require.NoError(t, eng.SubmitOrder(context.Background(), &taker))

	assert.Equal(t, uint64(1000), taker.Remaining, "self trade aborts the whole remainder, nothing fills")

	var cancelled bool
	for _, ev := range out.processorEvents {
		if ev.Kind == ProcessorOrderCancelled && ev.OrderID == "taker" {
			cancelled = true
			assert.Equal(t, formatQty(1000), ev.CancelledQuantity)
			assert.Equal(t, freezeVolume(5000, 1000).String(), ev.CancelledVolume, "nothing traded, the whole freeze unwinds")
		}
	}
	assert.True(t, cancelled)

	// Maker must still be resting untouched.
	level, ok := eng.book0.BestAsk()
	require.True(t, ok)
	assert.Equal(t, uint64(1000), level.Orders[0].Remaining)
}

// TestSubmitOrder_SelfTradePreservesPriorFills proves a self-trade maker
// encountered partway through a sweep only cancels what's left after it —
// legitimate fills against earlier, non-self makers still execute.
func TestSubmitOrder_SelfTradePreservesPriorFills(t *testing.T) {
	eng, out := newTestEngine()

	other := model.NewOrder("other-maker", sym("tok0"), model.Sell, model.Limit, 5000, 400, 1, "p1", "Yes", 0)
	require.NoError(t, eng.SubmitOrder(context.Background(), &other))

	selfMaker := model.NewOrder("self-maker", sym("tok0"), model.Sell, model.Limit, 5000, 1000, 99, "p99", "Yes", 0)
	require.NoError(t, eng.SubmitOrder(context.Background(), &selfMaker))

	taker := model.NewOrder("taker", sym("tok0"), model.Buy, model.Limit, 5000, 1000, 99, "p99", "Yes", 0)
	require.NoError(t, eng.SubmitOrder(context.Background(), &taker))

	assert.Equal(t, uint64(600), taker.Remaining, "400 filled against the earlier non-self maker, 600 left is cancelled")
	assert.Equal(t, uint64(400), taker.Filled)

	var traded, cancelled bool
	for _, ev := range out.processorEvents {
		if ev.Kind == ProcessorOrderTraded && ev.OrderID == "taker" {
			traded = true
			require.Len(t, ev.Fills, 1)
			assert.Equal(t, "other-maker", ev.Fills[0].MakerOrderID)
			assert.Equal(t, uint64(400), ev.Fills[0].MatchQuantity)
		}
		if ev.Kind == ProcessorOrderCancelled && ev.OrderID == "taker" {
			cancelled = true
			assert.Equal(t, formatQty(600), ev.CancelledQuantity)
			wantVolume := freezeVolume(5000, 1000).Sub(freezeVolume(5000, 400))
			assert.Equal(t, wantVolume.String(), ev.CancelledVolume)
		}
	}
	assert.True(t, traded, "expected the legitimate prior fill to execute")
	assert.True(t, cancelled, "expected the post-self-trade remainder to cancel")

	// The self-trade maker must still be resting untouched.
	level, ok := eng.book0.BestAsk()
	require.True(t, ok)
	assert.Equal(t, uint64(1000), level.Orders[0].Remaining)
}

func TestSubmitOrder_MarketOrderResidualCancelled(t *testing.T) {
	eng, out := newTestEngine()

	maker := model.NewOrder("maker", sym("tok0"), model.Sell, model.Limit, 5000, 500, 1, "p1", "Yes", 0)
	require.NoError(t, eng.SubmitOrder(context.Background(), &maker))

	// A market buy still carries a worst-acceptable-price bound as its Price
	// field — what the caller froze collateral against — even though it's
	// never used as a matching constraint.
	taker := model.NewOrder("taker", sym("tok0"), model.Buy, model.Market, model.MaxPrice, 1000, 2, "p2", "Yes", 0)
	require.NoError(t, eng.SubmitOrder(context.Background(), &taker))

	assert.Equal(t, uint64(500), taker.Remaining, "market order never rests; unmatched remainder is cancelled")

	var cancelled bool
	for _, ev := range out.processorEvents {
		if ev.Kind == ProcessorOrderCancelled && ev.OrderID == "taker" {
			cancelled = true
			assert.Equal(t, formatQty(500), ev.CancelledQuantity)
			wantVolume := freezeVolume(model.MaxPrice, 1000).Sub(freezeVolume(5000, 500))
			assert.Equal(t, wantVolume.String(), ev.CancelledVolume)
		}
	}
	assert.True(t, cancelled)
}

func TestHandleControl_RejectedSubmitUnfreezesFullAmount(t *testing.T) {
	eng, out := newTestEngine()

	// user_id == 0 fails model.Order.Validate, so submission never reaches
	// matching — nothing traded, the whole requested freeze unwinds.
	invalid := model.NewOrder("bad", sym("tok0"), model.Buy, model.Limit, 5000, 500, 0, "", "Yes", 0)
	eng.handleControl(context.Background(), Control{Submit: &invalid})

	require.Len(t, out.processorEvents, 1)
	ev := out.processorEvents[0]
	assert.Equal(t, ProcessorOrderRejected, ev.Kind)
	assert.NotEmpty(t, ev.RejectReason)
	assert.Equal(t, formatQty(500), ev.CancelledQuantity)
	assert.Equal(t, freezeVolume(5000, 500).String(), ev.CancelledVolume)
}

func TestCancelOrder_RemovesFromBothBooks(t *testing.T) {
	eng, out := newTestEngine()
	order := model.NewOrder("o1", sym("tok0"), model.Buy, model.Limit, 4000, 1000, 10, "p10", "Yes", 0)
	require.NoError(t, eng.SubmitOrder(context.Background(), &order))

	require.NoError(t, eng.CancelOrder(context.Background(), "o1"))

	var cancelled bool
	for _, ev := range out.processorEvents {
		if ev.Kind == ProcessorOrderCancelled && ev.OrderID == "o1" {
			cancelled = true
			assert.Equal(t, formatQty(1000), ev.CancelledQuantity)
			assert.Equal(t, freezeVolume(4000, 1000).String(), ev.CancelledVolume)
		}
	}
	assert.True(t, cancelled)

	_, ok := eng.book0.BestBid()
	assert.False(t, ok)
	_, ok = eng.book1.BestAsk()
	assert.False(t, ok)
}

func TestCancelOrder_NotFound(t *testing.T) {
	eng, _ := newTestEngine()
	err := eng.CancelOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}
