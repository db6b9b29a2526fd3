package matchengine

import (
	"fmt"
	"sync"

	"gopkg.in/tomb.v2"
)

// Manager is the process-wide registry of live markets: one MatchEngine
// goroutine per (event_id, market_id), looked up by callers that need to
// route an admitted order or cancel to the right engine.
type Manager struct {
	mu      sync.RWMutex
	markets map[marketKey]*managedEngine
}

type marketKey struct {
	eventID  int64
	marketID int16
}

type managedEngine struct {
	engine *MatchEngine
	tomb   *tomb.Tomb
}

// NewManager builds an empty registry.
func NewManager() *Manager {
	return &Manager{markets: make(map[marketKey]*managedEngine)}
}

// Register starts eng's Run loop under a fresh tomb and adds it to the
// registry. Returns an error if the market is already registered.
func (m *Manager) Register(eng *MatchEngine) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := marketKey{eng.EventID, eng.MarketID}
	if _, exists := m.markets[key]; exists {
		return fmt.Errorf("market %d/%d already registered", eng.EventID, eng.MarketID)
	}

	t := &tomb.Tomb{}
	t.Go(func() error { return eng.Run(t) })
	m.markets[key] = &managedEngine{engine: eng, tomb: t}
	return nil
}

// Lookup returns the engine for (eventID, marketID), if registered.
func (m *Manager) Lookup(eventID int64, marketID int16) (*MatchEngine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	me, ok := m.markets[marketKey{eventID, marketID}]
	if !ok {
		return nil, false
	}
	return me.engine, true
}

// Unregister kills a market's engine goroutine (triggering its drain) and
// removes it from the registry once the goroutine has exited.
func (m *Manager) Unregister(eventID int64, marketID int16) error {
	m.mu.Lock()
	me, ok := m.markets[marketKey{eventID, marketID}]
	if ok {
		delete(m.markets, marketKey{eventID, marketID})
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("market %d/%d not registered", eventID, marketID)
	}
	me.tomb.Kill(nil)
	return me.tomb.Wait()
}

// StopAll kills every registered market's engine and waits for every drain
// to complete — used at process shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	entries := make([]*managedEngine, 0, len(m.markets))
	for _, me := range m.markets {
		entries = append(entries, me)
	}
	m.markets = make(map[marketKey]*managedEngine)
	m.mu.Unlock()

	for _, me := range entries {
		me.tomb.Kill(nil)
	}
	for _, me := range entries {
		_ = me.tomb.Wait()
	}
}
