package market

import "time"

// Candle is one fixed-duration OHLCV bar.
//
// Invariant: High >= max(Open, Close) and Low <= min(Open, Close).
type Candle struct {
	OpenTime time.Time `json:"openTime"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Touch folds a new trade price into the bar, keeping High/Low as
// running extrema of the close.
func (c *Candle) Touch(price, volume float64) {
	c.Close = price
	if price > c.High {
		c.High = price
	}
	if price < c.Low {
		c.Low = price
	}
	c.Volume += volume
}

// Series is a chronologically ordered, bounded candle sequence. Only the
// final bar (the open bar) is ever mutated; everything before it is
// sealed history. When the series would exceed maxBars the oldest bars
// are evicted.
type Series struct {
	Bars    []Candle
	maxBars int
}

func NewSeries(maxBars int) *Series {
	return &Series{maxBars: maxBars}
}

func (s *Series) Len() int { return len(s.Bars) }

// Last returns a pointer to the open bar, or nil for an empty series.
func (s *Series) Last() *Candle {
	if len(s.Bars) == 0 {
		return nil
	}
	return &s.Bars[len(s.Bars)-1]
}

// Append seals the current open bar and starts a new one, trimming the
// series to maxBars-1 first so the bound holds after the append.
func (s *Series) Append(c Candle) {
	if s.maxBars > 0 && len(s.Bars) >= s.maxBars {
		drop := len(s.Bars) - s.maxBars + 1
		s.Bars = append(s.Bars[:0], s.Bars[drop:]...)
	}
	s.Bars = append(s.Bars, c)
}

// Clone returns a copy safe to hand to readers while the open bar keeps
// moving underneath.
func (s *Series) Clone() []Candle {
	out := make([]Candle, len(s.Bars))
	copy(out, s.Bars)
	return out
}

// Closes returns the close column, oldest first.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, c := range s.Bars {
		out[i] = c.Close
	}
	return out
}
