package sim

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rustyeddy/perpterm/market"
)

func newGenerator(t *testing.T, now time.Time) (*Generator, *market.Registry) {
	t.Helper()
	reg := market.NewRegistry(market.DefaultInstruments())
	g := NewGenerator(reg, 80, time.Minute, rand.New(rand.NewSource(1)))
	g.Seed(now)
	return g, reg
}

func checkCandleInvariants(t *testing.T, sym string, bars []market.Candle) {
	t.Helper()
	for i, c := range bars {
		if c.Open <= 0 || c.Close <= 0 || c.High <= 0 || c.Low <= 0 {
			t.Fatalf("%s bar %d: non-positive price %+v", sym, i, c)
		}
		if c.High < c.Open || c.High < c.Close {
			t.Fatalf("%s bar %d: high %v < max(open %v, close %v)", sym, i, c.High, c.Open, c.Close)
		}
		if c.Low > c.Open || c.Low > c.Close {
			t.Fatalf("%s bar %d: low %v > min(open %v, close %v)", sym, i, c.Low, c.Open, c.Close)
		}
		if c.Volume < 0 {
			t.Fatalf("%s bar %d: negative volume %v", sym, i, c.Volume)
		}
	}
}

func TestSeedProducesValidHistory(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	g, reg := newGenerator(t, now)

	for _, in := range reg.All() {
		s := g.Series(in.Symbol)
		if s == nil {
			t.Fatalf("no series for %s", in.Symbol)
		}
		if s.Len() != 80 {
			t.Fatalf("%s: series length %d, want 80", in.Symbol, s.Len())
		}
		checkCandleInvariants(t, in.Symbol, s.Bars)

		last := s.Last()
		if !last.OpenTime.Equal(now) {
			t.Fatalf("%s: open bar starts at %v, want %v", in.Symbol, last.OpenTime, now)
		}
		// Chronological, gapless minute bars.
		for i := 1; i < s.Len(); i++ {
			if got := s.Bars[i].OpenTime.Sub(s.Bars[i-1].OpenTime); got != time.Minute {
				t.Fatalf("%s: bar spacing %v at %d", in.Symbol, got, i)
			}
			if s.Bars[i].Open != s.Bars[i-1].Close {
				t.Fatalf("%s: bar %d open %v != previous close %v", in.Symbol, i, s.Bars[i].Open, s.Bars[i-1].Close)
			}
		}

		mark, ok := g.Mark(in.Symbol)
		if !ok || mark != in.BasePrice {
			t.Fatalf("%s: initial mark %v, want base %v", in.Symbol, mark, in.BasePrice)
		}
	}
}

func TestAdvanceKeepsInvariantsAndBound(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	g, reg := newGenerator(t, now)

	for i := 0; i < 500; i++ {
		now = now.Add(600 * time.Millisecond)
		g.AdvancePrices(now)
		g.AdvanceCandles(now)

		for _, in := range reg.All() {
			s := g.Series(in.Symbol)
			if s.Len() > 80 {
				t.Fatalf("%s: series grew to %d bars", in.Symbol, s.Len())
			}
			checkCandleInvariants(t, in.Symbol, s.Bars)
		}
	}

	// 500 ticks x 600ms = 5 minutes; bars rolled over, still bounded.
	s := g.Series("BTC-PERP")
	if s.Len() != 80 {
		t.Fatalf("series length %d after rollover, want 80", s.Len())
	}
}

func TestBarSealsAfterDuration(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	g, _ := newGenerator(t, start)

	s := g.Series("BTC-PERP")
	openBar := *s.Last()

	// Mid-bar advance mutates the open bar in place.
	g.AdvanceCandles(start.Add(30 * time.Second))
	if !s.Last().OpenTime.Equal(openBar.OpenTime) {
		t.Fatalf("bar rolled over before its duration elapsed")
	}

	// Crossing the bar duration seals it and appends a fresh bar seeded
	// from the sealed close.
	g.AdvanceCandles(start.Add(61 * time.Second))
	last := s.Last()
	if !last.OpenTime.Equal(start.Add(61 * time.Second)) {
		t.Fatalf("new bar open time %v", last.OpenTime)
	}
	sealed := s.Bars[s.Len()-2]
	if last.Open != sealed.Close {
		t.Fatalf("new bar open %v, want sealed close %v", last.Open, sealed.Close)
	}
	if s.Len() != 80 {
		t.Fatalf("series length %d after seal, want 80", s.Len())
	}
}

func TestAdvanceIsNoOpForUnseededInstrument(t *testing.T) {
	reg := market.NewRegistry(market.DefaultInstruments())
	g := NewGenerator(reg, 80, time.Minute, rand.New(rand.NewSource(1)))

	// Never seeded: advancing must not panic or invent state.
	g.AdvancePrices(time.Now())
	g.AdvanceCandles(time.Now())

	if s := g.Series("BTC-PERP"); s != nil {
		t.Fatalf("series appeared without seeding")
	}
}

func TestPriceStateTracksPercentChange(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	g, reg := newGenerator(t, now)

	for i := 0; i < 50; i++ {
		now = now.Add(600 * time.Millisecond)
		g.AdvancePrices(now)
	}

	for _, in := range reg.All() {
		p, err := g.Prices().Get(in.Symbol)
		if err != nil {
			t.Fatalf("price for %s: %v", in.Symbol, err)
		}
		if p.LastPrice <= 0 {
			t.Fatalf("%s: non-positive last price %v", in.Symbol, p.LastPrice)
		}
		want := (p.LastPrice - in.BasePrice) / in.BasePrice * 100
		if diff := p.PercentChange - want; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("%s: percent change %v, want %v", in.Symbol, p.PercentChange, want)
		}
	}
}

func TestSeedIsDeterministicForEqualSources(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	reg := market.NewRegistry(market.DefaultInstruments())

	g1 := NewGenerator(reg, 80, time.Minute, rand.New(rand.NewSource(7)))
	g2 := NewGenerator(reg, 80, time.Minute, rand.New(rand.NewSource(7)))
	g1.Seed(now)
	g2.Seed(now)

	a := g1.Series("ETH-PERP").Bars
	b := g2.Series("ETH-PERP").Bars
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("bar %d diverged: %+v vs %+v", i, a[i], b[i])
		}
	}
}
