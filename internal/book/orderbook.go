// Package book implements the per-token price-level order book: a
// tidwall/btree-backed structure of FIFO price levels, plus the
// cross-outcome insertion that is this exchange's defining feature — a
// resting order lives in its own token's book AND, at the complement
// price, in the other token's book, so a taker on either token can match
// against it.
package book

import (
	"errors"

	"github.com/tidwall/btree"

	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

var (
	ErrOrderNotFound = errors.New("order not found in book")
	ErrPriceNotFound = errors.New("price level not found")
	ErrZeroQuantity  = errors.New("order has zero remaining quantity")
)

// PriceLevel holds every order resting at one price, in arrival order —
// the SmallVec slot in the original engine, here a plain slice since Go
// gives us no stack-allocated small-vector equivalent worth reaching for.
type PriceLevel struct {
	Price  int32
	Orders []*model.Order
}

type levels = btree.BTreeG[*PriceLevel]

// index tracks, per resting order id, which side/price it currently lives
// at in THIS book — native or cross — so RemoveOrder/UpdateOrder don't need
// to scan both trees.
type index struct {
	side  model.Side
	price int32
}

// OrderBook is one token's book: bids sorted best (highest) first, asks
// sorted best (lowest) first. An order placed on this token also appears,
// via AddCrossOrder, in the complement token's OrderBook at the opposite
// side and OppositeResultPrice.
type OrderBook struct {
	TokenID string

	bids *levels
	asks *levels

	byOrder map[string]index
}

// New builds an empty book for tokenID.
func New(tokenID string) *OrderBook {
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price > b.Price // descending: best bid is Min()
	})
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price < b.Price // ascending: best ask is Min()
	})
	return &OrderBook{
		TokenID: tokenID,
		bids:    bids,
		asks:    asks,
		byOrder: make(map[string]index),
	}
}

func (b *OrderBook) sideTree(side model.Side) *levels {
	if side == model.Buy {
		return b.bids
	}
	return b.asks
}

// AddOrder inserts o into its native side at o.Price.
func (b *OrderBook) AddOrder(o *model.Order) error {
	return b.insert(o, o.Side, o.Price)
}

// AddCrossOrder inserts o into the OPPOSITE side at o.OppositeResultPrice —
// the insertion that links a TOKEN_0 resting order into the TOKEN_1 book
// (and vice versa) so either token's takers can cross it.
func (b *OrderBook) AddCrossOrder(o *model.Order) error {
	return b.insert(o, o.Side.Opposite(), o.OppositeResultPrice)
}

func (b *OrderBook) insert(o *model.Order, side model.Side, price int32) error {
	if o.Remaining == 0 {
		return ErrZeroQuantity
	}
	tree := b.sideTree(side)
	probe := &PriceLevel{Price: price}
	if level, ok := tree.Get(probe); ok {
		level.Orders = append(level.Orders, o)
	} else {
		tree.Set(&PriceLevel{Price: price, Orders: []*model.Order{o}})
	}
	b.byOrder[o.OrderID] = index{side: side, price: price}
	return nil
}

// RemoveOrder deletes orderID from whichever side/price it currently
// occupies in this book and returns the order removed.
func (b *OrderBook) RemoveOrder(orderID string) (*model.Order, error) {
	idx, ok := b.byOrder[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	tree := b.sideTree(idx.side)
	probe := &PriceLevel{Price: idx.price}
	level, ok := tree.Get(probe)
	if !ok {
		return nil, ErrPriceNotFound
	}
	pos := -1
	for i, o := range level.Orders {
		if o.OrderID == orderID {
			pos = i
			break
		}
	}
	if pos == -1 {
		return nil, ErrOrderNotFound
	}
	removed := level.Orders[pos]
	level.Orders = append(level.Orders[:pos], level.Orders[pos+1:]...)
	if len(level.Orders) == 0 {
		tree.Delete(level)
	}
	delete(b.byOrder, orderID)
	return removed, nil
}

// BestBid returns the highest resting bid price level, if any.
func (b *OrderBook) BestBid() (*PriceLevel, bool) {
	return b.bids.Min()
}

// BestAsk returns the lowest resting ask price level, if any.
func (b *OrderBook) BestAsk() (*PriceLevel, bool) {
	return b.asks.Min()
}

// Bids walks bid levels best-first, calling fn until it returns false.
func (b *OrderBook) Bids(fn func(*PriceLevel) bool) {
	b.bids.Scan(fn)
}

// Asks walks ask levels best-first, calling fn until it returns false.
func (b *OrderBook) Asks(fn func(*PriceLevel) bool) {
	b.asks.Scan(fn)
}

// DeleteLevel removes an emptied level from side.
func (b *OrderBook) DeleteLevel(side model.Side, price int32) {
	b.sideTree(side).Delete(&PriceLevel{Price: price})
}

// Depth returns up to maxDepth levels per side, best first, as
// model.PriceLevel rows with quantity aggregated across resting orders.
func (b *OrderBook) Depth(maxDepth int) (bids, asks []model.PriceLevel) {
	n := 0
	b.bids.Scan(func(l *PriceLevel) bool {
		if n >= maxDepth {
			return false
		}
		bids = append(bids, aggregateLevel(l))
		n++
		return true
	})
	n = 0
	b.asks.Scan(func(l *PriceLevel) bool {
		if n >= maxDepth {
			return false
		}
		asks = append(asks, aggregateLevel(l))
		n++
		return true
	})
	return bids, asks
}

func aggregateLevel(l *PriceLevel) model.PriceLevel {
	var total uint64
	for _, o := range l.Orders {
		total += o.Remaining
	}
	return model.PriceLevel{Price: l.Price, TotalQty: total}
}

// Len reports live bid/ask level counts, for stats/health reporting.
func (b *OrderBook) Len() (bidLevels, askLevels int) {
	return b.bids.Len(), b.asks.Len()
}
