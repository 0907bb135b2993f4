package sim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rustyeddy/perpterm/market"
)

// Level sizes are drawn uniformly from [minLevelSize, minLevelSize+levelSizeSpan).
const (
	minLevelSize  = 0.2
	levelSizeSpan = 4.0
)

// DefaultBookDepth is the number of levels synthesized per side.
const DefaultBookDepth = 8

// SynthesizeBook fabricates a depth ladder around mid: asks at
// mid + k*2*tickSize and bids at mid - k*2*tickSize for k=1..depth, each
// with a random size. The cumulative column is running notional
// (price x size) from the best level outward.
//
// A non-positive mid is rejected rather than clamped; the source left
// this case undefined and clamping would hide a broken generator.
func SynthesizeBook(symbol string, mid, tickSize float64, depth int, rng *rand.Rand) (market.Book, error) {
	if mid <= 0 || math.IsNaN(mid) || math.IsInf(mid, 0) {
		return market.Book{}, fmt.Errorf("synthesize book for %s: mid %v: %w", symbol, mid, ErrInvalidArgument)
	}
	if tickSize <= 0 {
		return market.Book{}, fmt.Errorf("synthesize book for %s: tick size %v: %w", symbol, tickSize, ErrInvalidArgument)
	}
	if depth <= 0 {
		depth = DefaultBookDepth
	}

	b := market.Book{
		Symbol: symbol,
		Mid:    mid,
		Asks:   make([]market.BookLevel, 0, depth),
		Bids:   make([]market.BookLevel, 0, depth),
	}

	step := 2 * tickSize
	var askTotal, bidTotal float64
	for k := 1; k <= depth; k++ {
		price := mid + float64(k)*step
		size := minLevelSize + rng.Float64()*levelSizeSpan
		askTotal += price * size
		b.Asks = append(b.Asks, market.BookLevel{Price: price, Size: size, Cumulative: askTotal})

		price = mid - float64(k)*step
		size = minLevelSize + rng.Float64()*levelSizeSpan
		bidTotal += price * size
		b.Bids = append(b.Bids, market.BookLevel{Price: price, Size: size, Cumulative: bidTotal})
	}
	return b, nil
}
