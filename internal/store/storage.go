// Package store keeps an in-memory shadow of every resting order and open
// market, fed by the engine's store-event stream, and periodically
// persists it to a snapshot file so the engine can warm-start without
// replaying its entire order-input history.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/purplecity/predictionmarket-sub000/internal/matchengine"
	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

// snapshotFile is the file name the snapshot is written under inside the
// configured data directory.
const snapshotFile = "orders_snapshot.json"

type storageData struct {
	orders          map[string]map[string]model.Order // symbol string -> order_id -> Order
	markets         map[model.MarketKey]model.Market
	marketUpdateIDs map[model.MarketKey]uint64
	lastMessageID   string
}

// OrderStorage is the store service's single source of truth: every field
// lives under one mutex so a snapshot always observes orders, markets and
// lastMessageID as of the same processed message, never a torn mix.
type OrderStorage struct {
	mu      sync.RWMutex
	data    storageData
	dataDir string
}

// New creates the data directory (best-effort, logged not fatal) and
// returns an empty storage ready for HandleOrderChange or LoadSnapshot.
func New(dataDir string) *OrderStorage {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Error().Err(err).Str("dir", dataDir).Msg("failed to create store data directory")
	}
	return &OrderStorage{
		dataDir: dataDir,
		data: storageData{
			orders:          make(map[string]map[string]model.Order),
			markets:         make(map[model.MarketKey]model.Market),
			marketUpdateIDs: make(map[model.MarketKey]uint64),
		},
	}
}

// LastMessageID returns the most recently processed store-stream message
// id, used to trim the stream after a snapshot. The consumer group resumes
// from its own recorded position after a restart, not from this id.
func (s *OrderStorage) LastMessageID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.lastMessageID
}

// HandleOrderChange applies one StoreEvent to the shadow and records
// messageID as the latest processed, all under one lock so the two never
// drift apart. Mirrors the original storage layer's dispatch: no logging
// on the hot order-mutation path, only on market add/remove, since this
// runs on every single fill.
func (s *OrderStorage) HandleOrderChange(ev matchengine.StoreEvent, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case matchengine.StoreOrderCreated, matchengine.StoreOrderUpdated:
		key := ev.Order.Symbol.String()
		symbolOrders, ok := s.data.orders[key]
		if !ok {
			symbolOrders = make(map[string]model.Order)
			s.data.orders[key] = symbolOrders
		}
		symbolOrders[ev.Order.OrderID] = *ev.Order

	case matchengine.StoreOrderFilled, matchengine.StoreOrderCancelled:
		key := ev.Symbol.String()
		if symbolOrders, ok := s.data.orders[key]; ok {
			delete(symbolOrders, ev.OrderID)
			if len(symbolOrders) == 0 {
				delete(s.data.orders, key)
			}
		}

	case matchengine.StoreEventAdded:
		log.Info().Int64("event_id", ev.EventID).Int16("market_id", ev.MarketID).Msg("processing market added")
		if ev.Market != nil {
			s.data.markets[ev.Market.Key()] = *ev.Market
		}

	case matchengine.StoreEventRemoved:
		mk := model.MarketKey{EventID: ev.EventID, MarketID: ev.MarketID}
		log.Info().Int64("event_id", ev.EventID).Int16("market_id", ev.MarketID).Msg("processing market removed")
		removed := 0
		for symbolKey, symbolOrders := range s.data.orders {
			if matchesMarket(symbolKey, mk) {
				removed += len(symbolOrders)
				delete(s.data.orders, symbolKey)
			}
		}
		delete(s.data.markets, mk)
		delete(s.data.marketUpdateIDs, mk)
		if removed > 0 {
			log.Info().Int64("event_id", ev.EventID).Int16("market_id", ev.MarketID).Int("orders_removed", removed).Msg("market removed, orders cleaned up")
		}

	case matchengine.StoreMarketUpdateID:
		s.data.marketUpdateIDs[model.MarketKey{EventID: ev.EventID, MarketID: ev.MarketID}] = ev.UpdateID
	}

	s.data.lastMessageID = messageID
}

// matchesMarket reports whether symbolKey (model.Symbol.String(), of shape
// "event|market|token") belongs to mk.
func matchesMarket(symbolKey string, mk model.MarketKey) bool {
	prefix := fmt.Sprintf("%d|%d|", mk.EventID, mk.MarketID)
	return len(symbolKey) >= len(prefix) && symbolKey[:len(prefix)] == prefix
}

type allOrdersSnapshot struct {
	Snapshots     []orderSnapshot           `json:"snapshots"`
	Markets       map[string]snapshotMarket `json:"markets"`
	Timestamp     int64                     `json:"timestamp"`
	LastMessageID string                    `json:"last_message_id"`
}

type orderSnapshot struct {
	Symbol    model.Symbol  `json:"symbol"`
	Orders    []model.Order `json:"orders"`
	Timestamp int64         `json:"timestamp"`
}

type snapshotMarket struct {
	Market   model.Market `json:"market"`
	UpdateID uint64       `json:"update_id"`
}

// SaveSnapshot writes every active (New or PartiallyFilled) order, every
// still-open market and the last processed message id to disk, fsyncing
// before returning so a crash right after never loses the write. Expired
// markets (EndTimeMs in the past) and their orders are skipped, since a
// market that has already closed has no business being replayed into a
// fresh engine.
func (s *OrderStorage) SaveSnapshot() error {
	s.mu.RLock()
	now := time.Now().UnixMilli()

	var snapshots []orderSnapshot
	skippedOrders, skippedMarkets := 0, 0
	for symbolKey, symbolOrders := range s.data.orders {
		var active []model.Order
		for _, o := range symbolOrders {
			if o.Status == model.StatusNew || o.Status == model.StatusPartiallyFilled {
				active = append(active, o)
			}
		}
		if len(active) == 0 {
			continue
		}
		mk := model.MarketKey{EventID: active[0].Symbol.EventID, MarketID: active[0].Symbol.MarketID}
		mkt, ok := s.data.markets[mk]
		if !ok {
			continue
		}
		if mkt.EndTimeMs != nil && *mkt.EndTimeMs < now {
			skippedMarkets++
			skippedOrders += len(active)
			continue
		}
		sym, err := model.ParseSymbol(symbolKey)
		if err != nil {
			log.Error().Err(err).Str("key", symbolKey).Msg("skipping unparseable symbol key in snapshot")
			continue
		}
		snapshots = append(snapshots, orderSnapshot{Symbol: sym, Orders: active, Timestamp: now})
	}

	markets := make(map[string]snapshotMarket, len(s.data.markets))
	for mk, mkt := range s.data.markets {
		if mkt.EndTimeMs != nil && *mkt.EndTimeMs < now {
			continue
		}
		markets[mk.String()] = snapshotMarket{Market: mkt, UpdateID: s.data.marketUpdateIDs[mk]}
	}

	lastMessageID := s.data.lastMessageID
	s.mu.RUnlock()

	snap := allOrdersSnapshot{Snapshots: snapshots, Markets: markets, Timestamp: now, LastMessageID: lastMessageID}
	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	path := filepath.Join(s.dataDir, snapshotFile)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	if _, err := f.Write(payload); err != nil {
		f.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("fsync snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename snapshot into place: %w", err)
	}

	totalOrders := 0
	for _, snp := range snapshots {
		totalOrders += len(snp.Orders)
	}
	if skippedOrders > 0 {
		log.Info().Int("symbols", len(snapshots)).Int("orders", totalOrders).Int("markets", len(markets)).
			Int("skipped_orders", skippedOrders).Int("skipped_markets", skippedMarkets).Msg("saved order snapshot")
	} else {
		log.Info().Int("symbols", len(snapshots)).Int("orders", totalOrders).Int("markets", len(markets)).Msg("saved order snapshot")
	}
	return nil
}

// LoadSnapshot replaces the in-memory shadow with the contents of the
// snapshot file, if one exists, skipping the orders of any market that has
// already expired since the snapshot was written (the market entry itself
// is still loaded). Returns the last processed message id recorded in the
// snapshot.
func (s *OrderStorage) LoadSnapshot() (string, error) {
	path := filepath.Join(s.dataDir, snapshotFile)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Info().Str("path", path).Msg("snapshot file not found, starting with empty storage")
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read snapshot: %w", err)
	}

	var snap allOrdersSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return "", fmt.Errorf("unmarshal snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.markets = make(map[model.MarketKey]model.Market, len(snap.Markets))
	s.data.marketUpdateIDs = make(map[model.MarketKey]uint64, len(snap.Markets))
	for _, sm := range snap.Markets {
		s.data.markets[sm.Market.Key()] = sm.Market
		s.data.marketUpdateIDs[sm.Market.Key()] = sm.UpdateID
	}

	now := time.Now().UnixMilli()
	s.data.orders = make(map[string]map[string]model.Order)
	totalOrders, skippedOrders, skippedMarkets := 0, 0, 0
	for _, osnap := range snap.Snapshots {
		mkt, ok := s.data.markets[model.MarketKey{EventID: osnap.Symbol.EventID, MarketID: osnap.Symbol.MarketID}]
		if !ok || (mkt.EndTimeMs != nil && *mkt.EndTimeMs < now) {
			skippedMarkets++
			skippedOrders += len(osnap.Orders)
			continue
		}
		symbolOrders := make(map[string]model.Order, len(osnap.Orders))
		for _, o := range osnap.Orders {
			symbolOrders[o.OrderID] = o
			totalOrders++
		}
		s.data.orders[osnap.Symbol.String()] = symbolOrders
	}
	s.data.lastMessageID = snap.LastMessageID

	if skippedOrders > 0 {
		log.Info().Int("markets", len(s.data.markets)).Int("orders", totalOrders).
			Int("skipped_orders", skippedOrders).Int("skipped_markets", skippedMarkets).Msg("loaded order snapshot")
	} else {
		log.Info().Int("markets", len(s.data.markets)).Int("orders", totalOrders).Msg("loaded order snapshot")
	}
	return snap.LastMessageID, nil
}

