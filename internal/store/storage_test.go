package store

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purplecity/predictionmarket-sub000/internal/matchengine"
	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

func newTestOrder(id string, status model.OrderStatus) model.Order {
	o := model.NewOrder(id, model.Symbol{EventID: 1, MarketID: 2, TokenID: "tok0"}, model.Buy, model.Limit, 5000, 1000, 7, "privy", "Yes", 0)
	o.Status = status
	return o
}

func TestHandleOrderChange_CreatedThenFilled(t *testing.T) {
	s := New(t.TempDir())
	order := newTestOrder("o1", model.StatusNew)

	s.HandleOrderChange(matchengine.StoreEvent{Kind: matchengine.StoreOrderCreated, Order: &order}, "1-1")
	assert.Equal(t, "1-1", s.LastMessageID())

	s.HandleOrderChange(matchengine.StoreEvent{Kind: matchengine.StoreOrderFilled, OrderID: "o1", Symbol: order.Symbol}, "1-2")
	assert.Equal(t, "1-2", s.LastMessageID())
	assert.Empty(t, s.data.orders)
}

func TestHandleOrderChange_EventRemovedClearsMarketOrders(t *testing.T) {
	s := New(t.TempDir())
	mkt := model.Market{EventID: 1, MarketID: 2, TokenIDs: [2]string{"tok0", "tok1"}}
	s.HandleOrderChange(matchengine.StoreEvent{Kind: matchengine.StoreEventAdded, EventID: 1, MarketID: 2, Market: &mkt}, "1-1")

	order := newTestOrder("o1", model.StatusNew)
	s.HandleOrderChange(matchengine.StoreEvent{Kind: matchengine.StoreOrderCreated, Order: &order}, "1-2")
	require.Len(t, s.data.orders, 1)

	s.HandleOrderChange(matchengine.StoreEvent{Kind: matchengine.StoreEventRemoved, EventID: 1, MarketID: 2}, "1-3")
	assert.Empty(t, s.data.orders)
	assert.Empty(t, s.data.markets)
}

func TestSaveAndLoadSnapshot_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	mkt := model.Market{EventID: 1, MarketID: 2, TokenIDs: [2]string{"tok0", "tok1"}}
	s.HandleOrderChange(matchengine.StoreEvent{Kind: matchengine.StoreEventAdded, EventID: 1, MarketID: 2, Market: &mkt}, "1-1")

	active := newTestOrder("o1", model.StatusPartiallyFilled)
	filled := newTestOrder("o2", model.StatusFilled) // not active, must be skipped
	s.HandleOrderChange(matchengine.StoreEvent{Kind: matchengine.StoreOrderCreated, Order: &active}, "1-2")
	s.HandleOrderChange(matchengine.StoreEvent{Kind: matchengine.StoreOrderCreated, Order: &filled}, "1-3")

	require.NoError(t, s.SaveSnapshot())
	_, err := os.Stat(dir + "/" + snapshotFile)
	require.NoError(t, err)

	reloaded := New(dir)
	lastID, err := reloaded.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, "1-3", lastID)

	symbolOrders := reloaded.data.orders[active.Symbol.String()]
	require.Len(t, symbolOrders, 1, "only the active order should survive the snapshot round trip")
	assert.Contains(t, symbolOrders, "o1")
}

func TestLoadSnapshot_MissingFileIsNotAnError(t *testing.T) {
	s := New(t.TempDir())
	lastID, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.Empty(t, lastID)
}

func TestLoadSnapshot_SkipsExpiredMarket(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	past := int64(1)
	mkt := model.Market{EventID: 1, MarketID: 2, TokenIDs: [2]string{"tok0", "tok1"}, EndTimeMs: &past}
	s.HandleOrderChange(matchengine.StoreEvent{Kind: matchengine.StoreEventAdded, EventID: 1, MarketID: 2, Market: &mkt}, "1-1")
	order := newTestOrder("o1", model.StatusNew)
	s.HandleOrderChange(matchengine.StoreEvent{Kind: matchengine.StoreOrderCreated, Order: &order}, "1-2")

	// SaveSnapshot itself already drops expired markets, so write the raw
	// file by hand to exercise LoadSnapshot's own expiry filter directly.
	raw, err := json.Marshal(allOrdersSnapshot{
		Snapshots: []orderSnapshot{{Symbol: order.Symbol, Orders: []model.Order{order}}},
		Markets:   map[string]snapshotMarket{mkt.Key().String(): {Market: mkt}},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dir+"/"+snapshotFile, raw, 0o644))

	reloaded := New(dir)
	_, err = reloaded.LoadSnapshot()
	require.NoError(t, err)
	assert.Empty(t, reloaded.data.orders, "orders for an expired market must not be reloaded")
}
