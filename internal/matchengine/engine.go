package matchengine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/purplecity/predictionmarket-sub000/internal/book"
	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

// MatchEngine owns both token books for one market (event_id, market_id).
// Every resting order lives in its own token's book AND, at
// OppositeResultPrice, in the other token's book, so crossMatchCandidates
// never needs to special-case which token the taker came in on — it only
// ever walks the taker's native book.
type MatchEngine struct {
	EventID  int64
	MarketID int16
	Token0ID string
	Token1ID string

	book0 *book.OrderBook
	book1 *book.OrderBook

	orders0 map[string]*model.Order
	orders1 map[string]*model.Order

	orderSeq uint64
	updateID uint64

	token0LatestTradePrice string
	token1LatestTradePrice string

	lastDepth0 map[levelKey]uint64
	lastDepth1 map[levelKey]uint64

	out Output

	Inbox chan Control
}

type levelKey struct {
	side  model.Side
	price int32
}

// New builds an idle engine for one market. Inbox is buffered to
// maxOrderCount, mirroring the original engine's bounded mpsc channel. A
// send to a full Inbox blocks until the engine drains it; nothing is
// rejected or shed at that point.
func New(eventID int64, marketID int16, token0ID, token1ID string, maxOrderCount int, out Output) *MatchEngine {
	return &MatchEngine{
		EventID:  eventID,
		MarketID: marketID,
		Token0ID: token0ID,
		Token1ID: token1ID,
		book0:    book.New(token0ID),
		book1:    book.New(token1ID),
		orders0:  make(map[string]*model.Order),
		orders1:  make(map[string]*model.Order),
		out:      out,
		Inbox:    make(chan Control, maxOrderCount),
	}
}

func (e *MatchEngine) symbolBooks(o *model.Order) (native, cross *book.OrderBook, nativeOrders map[string]*model.Order) {
	if o.Symbol.TokenID == e.Token0ID {
		return e.book0, e.book1, e.orders0
	}
	return e.book1, e.book0, e.orders1
}

// nativeBookFor picks the book the taker's own token rests in — the engine
// matches a taker only against its native book, which already contains
// every cross-inserted order from the complement token.
func (e *MatchEngine) nativeBookFor(sym model.Symbol) *book.OrderBook {
	if sym.TokenID == e.Token0ID {
		return e.book0
	}
	return e.book1
}

// Validate rejects an order outside this market or otherwise malformed.
func (e *MatchEngine) Validate(o *model.Order) error {
	if o.Symbol.EventID != e.EventID || o.Symbol.MarketID != e.MarketID {
		return model.ErrInvalidOrder
	}
	return o.Validate()
}

// matchResult summarizes one taker sweep.
type matchResult struct {
	remaining    uint64
	fills        []model.Fill
	hasSelfTrade bool
}

// crossMatchCandidates walks the taker's native book price-time order,
// collecting makers up to the taker's remaining quantity. It stops the
// instant it meets a maker sharing the taker's user id: self-trade
// prevention never skips a blocking order to keep matching further down
// the book. Every candidate already gathered against earlier, non-self
// makers is kept and returned for execution; only the self-trade maker
// and anything past it are excluded.
func (e *MatchEngine) crossMatchCandidates(taker *model.Order) (fills []model.Fill, hasSelfTrade bool) {
	nb := e.nativeBookFor(taker.Symbol)
	var accumulated uint64
	target := taker.Remaining

	visit := func(level *book.PriceLevel) bool {
		for _, maker := range level.Orders {
			if maker.UserID == taker.UserID {
				// Stop the walk, but keep every fill already collected
				// against earlier, non-self makers — only the self-trade
				// maker and anything past it are dropped.
				hasSelfTrade = true
				return false
			}
			accumulated += maker.Remaining
			fills = append(fills, model.Fill{
				MakerOrderID:        maker.OrderID,
				MakerUserID:         maker.UserID,
				MakerPrivyID:        maker.PrivyID,
				MakerOutcome:        maker.Outcome,
				MakerSymbol:         maker.Symbol,
				MakerSide:           maker.Side,
				MatchPrice:          level.Price,
				MakerQuantityBefore: maker.Quantity,
			})
			if accumulated >= target {
				return false
			}
		}
		return true
	}

	switch taker.Side {
	case model.Buy:
		// Asks ascending, stop once a level's price exceeds the taker's limit.
		nb.Asks(func(l *book.PriceLevel) bool {
			if taker.OrderType == model.Limit && l.Price > taker.Price {
				return false
			}
			return visit(l)
		})
	case model.Sell:
		nb.Bids(func(l *book.PriceLevel) bool {
			if taker.OrderType == model.Limit && l.Price < taker.Price {
				return false
			}
			return visit(l)
		})
	}
	return fills, hasSelfTrade
}

// matchOrder executes a taker sweep against the book, mutating both books
// (native + cross) for every maker touched, and returns the unmatched
// remainder plus the fills produced. It never mutates the taker itself.
func (e *MatchEngine) matchOrder(ctx context.Context, taker *model.Order) (matchResult, error) {
	fills, hasSelfTrade := e.crossMatchCandidates(taker)

	remaining := taker.Remaining
	var applied []model.Fill

	for i := range fills {
		if remaining == 0 {
			break
		}
		f := &fills[i]
		makerOrder := e.lookupOrder(f.MakerOrderID, f.MakerSymbol)
		if makerOrder == nil || makerOrder.Remaining == 0 {
			continue
		}
		matchQty := min(remaining, makerOrder.Remaining)
		makerOrder.Fill(matchQty)
		f.MatchQuantity = matchQty
		f.MakerFilledAfter = makerOrder.Filled
		remaining -= matchQty
		applied = append(applied, *f)

		nativeBook, crossBook, nativeOrders := e.symbolBooks(makerOrder)
		if makerOrder.Remaining == 0 {
			if _, err := nativeBook.RemoveOrder(makerOrder.OrderID); err != nil {
				return matchResult{}, fmt.Errorf("remove filled maker from native book: %w", err)
			}
			if _, err := crossBook.RemoveOrder(makerOrder.OrderID); err != nil {
				return matchResult{}, fmt.Errorf("remove filled maker from cross book: %w", err)
			}
			delete(nativeOrders, makerOrder.OrderID)
			if err := e.out.PublishStoreEvent(ctx, StoreEvent{
				Kind: StoreOrderFilled, OrderID: makerOrder.OrderID, Symbol: makerOrder.Symbol,
			}); err != nil {
				log.Error().Err(err).Str("order_id", makerOrder.OrderID).Msg("publish maker filled store event")
			}
		} else {
			if err := e.out.PublishStoreEvent(ctx, StoreEvent{
				Kind: StoreOrderUpdated, Order: makerOrder, Symbol: makerOrder.Symbol,
			}); err != nil {
				log.Error().Err(err).Str("order_id", makerOrder.OrderID).Msg("publish maker updated store event")
			}
		}
	}

	return matchResult{remaining: remaining, fills: applied, hasSelfTrade: hasSelfTrade}, nil
}

func (e *MatchEngine) lookupOrder(orderID string, sym model.Symbol) *model.Order {
	if sym.TokenID == e.Token0ID {
		return e.orders0[orderID]
	}
	return e.orders1[orderID]
}
