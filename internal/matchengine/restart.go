package matchengine

import (
	"context"
	"sort"
	"time"

	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

// Snapshot is the persisted order-shadow for one market, loaded from the
// store service at engine startup.
type Snapshot struct {
	EventID  int64
	MarketID int16
	Token0ID string
	Token1ID string
	Orders   []model.Order // both tokens' resting orders, any order
}

// Restore rebuilds a MatchEngine from a store snapshot: orders are sorted
// by (price, seq) and replayed one at a time into both native and cross
// books, so the replay order never depends on map iteration order. Within
// one price level, orders of the same token keep their seq order; a
// native order and a cross-inserted order sharing a level are appended in
// the order of their own prices, not by seq.
func Restore(snap Snapshot, maxOrderCount int, out Output) *MatchEngine {
	eng := New(snap.EventID, snap.MarketID, snap.Token0ID, snap.Token1ID, maxOrderCount, out)

	orders := make([]model.Order, len(snap.Orders))
	copy(orders, snap.Orders)
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].Price != orders[j].Price {
			return orders[i].Price < orders[j].Price
		}
		return orders[i].Seq < orders[j].Seq
	})

	var maxSeq uint64
	for i := range orders {
		o := &orders[i]
		if o.Seq > maxSeq {
			maxSeq = o.Seq
		}
		native, cross, nativeOrders := eng.symbolBooks(o)
		_ = native.AddOrder(o)
		_ = cross.AddCrossOrder(o)
		nativeOrders[o.OrderID] = o
	}
	eng.orderSeq = maxSeq
	return eng
}

// WaitForStoreDrain is the restart-boot contract: the engine must not
// start replaying a snapshot until the store stream it trims against has
// fully drained, so a snapshot taken mid-write is never read back half
// applied. It polls streamLen on pollInterval until it reports zero, then
// sleeps one extra snapshotInterval before returning, giving the store one
// full cycle to finish writing out its own next snapshot.
func WaitForStoreDrain(ctx context.Context, streamLen func(context.Context) (int64, error), pollInterval, snapshotInterval time.Duration) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		n, err := streamLen(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(snapshotInterval):
		return nil
	}
}
