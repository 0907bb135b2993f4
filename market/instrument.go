package market

// Instrument describes a tradable perpetual contract. Instances are
// created at startup and never mutated afterwards.
type Instrument struct {
	Symbol      string  `json:"symbol"`
	BasePrice   float64 `json:"basePrice"`
	MaxLeverage int     `json:"maxLeverage"`
	TickSize    float64 `json:"tickSize"`
}

// DefaultInstruments returns the built-in contract set in display order.
func DefaultInstruments() []Instrument {
	return []Instrument{
		{Symbol: "BTC-PERP", BasePrice: 67840, MaxLeverage: 100, TickSize: 0.5},
		{Symbol: "ETH-PERP", BasePrice: 3515, MaxLeverage: 75, TickSize: 0.05},
		{Symbol: "SOL-PERP", BasePrice: 142, MaxLeverage: 50, TickSize: 0.01},
	}
}

// Registry is an ordered, immutable set of instruments indexed by symbol.
type Registry struct {
	list  []Instrument
	index map[string]int
}

func NewRegistry(instruments []Instrument) *Registry {
	r := &Registry{
		list:  make([]Instrument, len(instruments)),
		index: make(map[string]int, len(instruments)),
	}
	copy(r.list, instruments)
	for i, in := range r.list {
		r.index[in.Symbol] = i
	}
	return r
}

func (r *Registry) Len() int { return len(r.list) }

// At returns the instrument at a display position.
func (r *Registry) At(i int) (Instrument, bool) {
	if i < 0 || i >= len(r.list) {
		return Instrument{}, false
	}
	return r.list[i], true
}

func (r *Registry) Lookup(symbol string) (Instrument, bool) {
	i, ok := r.index[symbol]
	if !ok {
		return Instrument{}, false
	}
	return r.list[i], true
}

// All returns a copy of the instrument list in display order.
func (r *Registry) All() []Instrument {
	out := make([]Instrument, len(r.list))
	copy(out, r.list)
	return out
}
