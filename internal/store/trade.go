package store

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/efreitasn/mocktrader/internal/domain"
	"github.com/google/btree"
)

// tradeEntry guards one trade. Status checks and updates for a trade
// happen under its mu, so transitions on the same trade are linearizable
// without serializing unrelated trades.
type tradeEntry struct {
	seq   uint64 // copy of trade.Seq, immutable
	mu    sync.Mutex
	trade domain.Trade
}

func entryLess(a, b *tradeEntry) bool {
	return a.seq < b.seq
}

// TradeStore is a thread-safe in-memory store for trades, keyed by
// trade ID, with an index ordered by issuance sequence. Trades are never
// deleted. Callers always receive copies.
type TradeStore struct {
	mu      sync.RWMutex
	trades  map[string]*tradeEntry
	ordered *btree.BTreeG[*tradeEntry] // seq ascending
	seq     atomic.Uint64
}

// NewTradeStore creates an empty TradeStore.
func NewTradeStore() *TradeStore {
	const degree = 32
	return &TradeStore{
		trades:  make(map[string]*tradeEntry),
		ordered: btree.NewG[*tradeEntry](degree, entryLess),
	}
}

// NextID atomically allocates the next sequence number (starting at 1)
// and its trade ID. Each value is handed to exactly one caller.
func (s *TradeStore) NextID() (uint64, string) {
	seq := s.seq.Add(1)
	return seq, domain.FormatTradeID(seq)
}

// Create stores a copy of t. IDs come from NextID, so a duplicate
// indicates a programming error and is refused.
func (s *TradeStore) Create(t *domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.trades[t.TradeID]; exists {
		return fmt.Errorf("trade %s already stored", t.TradeID)
	}
	e := &tradeEntry{seq: t.Seq, trade: *t}
	s.trades[t.TradeID] = e
	s.ordered.ReplaceOrInsert(e)
	return nil
}

// Get returns a copy of the trade. It returns
// domain.ErrTradeNotFound if the trade does not exist.
func (s *TradeStore) Get(id string) (*domain.Trade, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.trade
	return &t, nil
}

// Update runs fn on the stored trade while holding that trade's lock.
// If fn returns an error the trade is left untouched and the error is
// returned alongside a copy of the unchanged trade.
func (s *TradeStore) Update(id string, fn func(t *domain.Trade) error) (*domain.Trade, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	working := e.trade
	if err := fn(&working); err != nil {
		t := e.trade
		return &t, err
	}
	e.trade = working
	return &working, nil
}

// List returns copies of all trades in issuance order.
func (s *TradeStore) List() []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Trade, 0, s.ordered.Len())
	s.ordered.Ascend(func(e *tradeEntry) bool {
		e.mu.Lock()
		t := e.trade
		e.mu.Unlock()
		result = append(result, &t)
		return true
	})
	return result
}

// Len returns the number of stored trades.
func (s *TradeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trades)
}

func (s *TradeStore) entry(id string) (*tradeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.trades[id]
	if !ok {
		return nil, domain.ErrTradeNotFound
	}
	return e, nil
}
