package market

import (
	"errors"
	"sync"
	"time"
)

// PriceState is the per-instrument "last trade" view, updated once per
// simulation tick. It is intentionally decoupled from the open candle's
// close; the two walks need not agree numerically.
type PriceState struct {
	Symbol        string    `json:"symbol"`
	LastPrice     float64   `json:"lastPrice"`
	LastDelta     float64   `json:"lastDelta"`
	PercentChange float64   `json:"percentChange"` // percent move from the base price
	RollingVolume float64   `json:"rollingVolume"`
	Time          time.Time `json:"time"`
}

var ErrPriceNotFound = errors.New("price not found")

// PriceStore holds the latest PriceState per symbol.
type PriceStore struct {
	mu     sync.RWMutex
	states map[string]PriceState
}

func NewPriceStore() *PriceStore {
	return &PriceStore{states: make(map[string]PriceState)}
}

func (ps *PriceStore) Set(p PriceState) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.states[p.Symbol] = p
}

func (ps *PriceStore) Get(symbol string) (PriceState, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	p, ok := ps.states[symbol]
	if !ok {
		return PriceState{}, ErrPriceNotFound
	}
	return p, nil
}

// Marks returns symbol -> last price for every known instrument.
func (ps *PriceStore) Marks() map[string]float64 {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make(map[string]float64, len(ps.states))
	for sym, p := range ps.states {
		out[sym] = p.LastPrice
	}
	return out
}

// All returns every price state keyed by symbol.
func (ps *PriceStore) All() map[string]PriceState {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make(map[string]PriceState, len(ps.states))
	for sym, p := range ps.states {
		out[sym] = p
	}
	return out
}
