package sim

import (
	"math/rand"
	"time"

	"github.com/rustyeddy/perpterm/market"
)

// Walk tunables. Seeding uses the full amplitude; the per-tick advance
// uses a tenth of it. The walk is skewed slightly negative (mean step is
// -0.02x the amplitude) so the synthetic history is not purely symmetric.
const (
	seedAmplitude = 0.012
	walkSkew      = 0.02
	wickAmplitude = 0.004
	maxBarVolume  = 12.0
)

// Generator owns every candle series and price state. It never fails: an
// instrument with no seeded series is skipped on advance.
type Generator struct {
	registry     *market.Registry
	series       map[string]*market.Series
	prices       *market.PriceStore
	rng          *rand.Rand
	barDuration  time.Duration
	historyDepth int
}

func NewGenerator(reg *market.Registry, historyDepth int, barDuration time.Duration, rng *rand.Rand) *Generator {
	return &Generator{
		registry:     reg,
		series:       make(map[string]*market.Series),
		prices:       market.NewPriceStore(),
		rng:          rng,
		barDuration:  barDuration,
		historyDepth: historyDepth,
	}
}

// perturb returns a signed step proportional to price. The uniform draw
// is shifted left by 2*walkSkew so the mean step is -walkSkew*scale*price.
func (g *Generator) perturb(price, scale float64) float64 {
	return price * scale * (g.rng.Float64()*2 - 1 - 2*walkSkew)
}

// Seed builds historyDepth+1 candles per instrument ending at now by
// walking backward from the base price; appending through the bounded
// series evicts the extra oldest bar. The initial price state starts the
// last-trade walk at the base price.
func (g *Generator) Seed(now time.Time) {
	for _, in := range g.registry.All() {
		n := g.historyDepth + 1

		// Backward walk from the base price; closes[0] is the oldest.
		closes := make([]float64, n)
		closes[n-1] = in.BasePrice
		for i := n - 2; i >= 0; i-- {
			p := closes[i+1] - g.perturb(closes[i+1], seedAmplitude)
			if p <= 0 {
				p = closes[i+1]
			}
			closes[i] = p
		}

		s := market.NewSeries(g.historyDepth)
		open := closes[0]
		for i := 0; i < n; i++ {
			c := market.Candle{
				OpenTime: now.Add(-time.Duration(n-1-i) * g.barDuration),
				Open:     open,
				Close:    closes[i],
				Volume:   g.rng.Float64() * maxBarVolume,
			}
			wick := c.Close * wickAmplitude
			c.High = max(c.Open, c.Close) + g.rng.Float64()*wick
			c.Low = min(c.Open, c.Close) - g.rng.Float64()*wick
			if c.Low <= 0 {
				c.Low = min(c.Open, c.Close)
			}
			s.Append(c)
			open = c.Close
		}
		g.series[in.Symbol] = s

		g.prices.Set(market.PriceState{
			Symbol:    in.Symbol,
			LastPrice: in.BasePrice,
			Time:      now,
		})
	}
}

// AdvancePrices steps every instrument's last-trade walk. A tick runs it
// before the candle step so the marks are final before anything reads
// them.
func (g *Generator) AdvancePrices(now time.Time) {
	for _, in := range g.registry.All() {
		p, err := g.prices.Get(in.Symbol)
		if err != nil {
			continue
		}
		delta := g.perturb(p.LastPrice, seedAmplitude/10)
		last := p.LastPrice + delta
		if last <= 0 {
			last, delta = p.LastPrice, 0
		}
		g.prices.Set(market.PriceState{
			Symbol:        in.Symbol,
			LastPrice:     last,
			LastDelta:     delta,
			PercentChange: (last - in.BasePrice) / in.BasePrice * 100,
			RollingVolume: p.RollingVolume + g.rng.Float64()*maxBarVolume,
			Time:          now,
		})
	}
}

// AdvanceCandles perturbs each open bar's close and rolls the bar over
// once it has lived a full bar duration. The sealed close seeds the next
// bar so the series stays gapless.
func (g *Generator) AdvanceCandles(now time.Time) {
	for _, in := range g.registry.All() {
		s, ok := g.series[in.Symbol]
		if !ok || s.Len() == 0 {
			continue
		}
		last := s.Last()

		px := last.Close + g.perturb(last.Close, seedAmplitude/10)
		if px <= 0 {
			px = last.Close
		}
		last.Touch(px, g.rng.Float64())

		if now.Sub(last.OpenTime) >= g.barDuration {
			sealed := last.Close
			s.Append(market.Candle{
				OpenTime: now,
				Open:     sealed,
				High:     sealed,
				Low:      sealed,
				Close:    sealed,
			})
		}
	}
}

// Series returns the candle series for a symbol, or nil if none exists.
func (g *Generator) Series(symbol string) *market.Series {
	return g.series[symbol]
}

func (g *Generator) Prices() *market.PriceStore { return g.prices }

// Mark returns the current last-trade price for a symbol, the mid the
// book is synthesized around and positions are valued against.
func (g *Generator) Mark(symbol string) (float64, bool) {
	p, err := g.prices.Get(symbol)
	if err != nil {
		return 0, false
	}
	return p.LastPrice, true
}
