package sim

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"
)

var testTime = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func place(t *testing.T, l *Ledger, req PlaceRequest, mark float64) PlaceResult {
	t.Helper()
	res, err := l.Place(req, "O1", mark, testTime)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	return res
}

func fptr(x float64) *float64 { return &x }

func TestMarketBuyOpensLong(t *testing.T) {
	l := NewLedger(10000)

	res := place(t, l, PlaceRequest{Symbol: "BTC-PERP", Side: Buy, Type: MarketOrder, Quantity: 0.5}, 67840)

	if !res.Executed {
		t.Fatalf("market order not reported as executed")
	}
	if res.Note.Level != NoteSuccess {
		t.Fatalf("fill note level %q", res.Note.Level)
	}

	positions := l.Positions()
	if len(positions) != 1 {
		t.Fatalf("position count %d, want 1", len(positions))
	}
	p := positions[0]
	if p.Direction != Long || p.Size != 0.5 || p.EntryPrice != 67840 {
		t.Fatalf("unexpected position %+v", p)
	}
	if want := 67840 * 0.9; p.LiquidationPrice != want {
		t.Fatalf("liquidation %v, want %v", p.LiquidationPrice, want)
	}
	if p.UnrealizedPnL != 0 {
		t.Fatalf("fresh position pnl %v, want 0", p.UnrealizedPnL)
	}
	if len(l.Orders()) != 0 {
		t.Fatalf("market order left a resting order behind")
	}
}

func TestSecondMarketBuyGrowsPositionWithoutAveraging(t *testing.T) {
	l := NewLedger(10000)

	place(t, l, PlaceRequest{Symbol: "BTC-PERP", Side: Buy, Type: MarketOrder, Quantity: 0.5}, 67000)
	place(t, l, PlaceRequest{Symbol: "BTC-PERP", Side: Buy, Type: MarketOrder, Quantity: 0.3}, 68000)

	positions := l.Positions()
	if len(positions) != 1 {
		t.Fatalf("position count %d, want 1", len(positions))
	}
	p := positions[0]
	if p.Size != 0.8 {
		t.Fatalf("size %v, want 0.8", p.Size)
	}
	// Entry stays at the first fill price; growth never re-averages.
	if p.EntryPrice != 67000 {
		t.Fatalf("entry %v, want 67000", p.EntryPrice)
	}
}

func TestMarketSellOpensIndependentShort(t *testing.T) {
	l := NewLedger(10000)

	place(t, l, PlaceRequest{Symbol: "BTC-PERP", Side: Buy, Type: MarketOrder, Quantity: 0.5}, 67000)
	place(t, l, PlaceRequest{Symbol: "BTC-PERP", Side: Sell, Type: MarketOrder, Quantity: 0.2}, 67000)

	positions := l.Positions()
	if len(positions) != 2 {
		t.Fatalf("position count %d, want 2", len(positions))
	}
	short := positions[1]
	if short.Direction != Short {
		t.Fatalf("second position direction %q", short.Direction)
	}
	if want := 67000 * 1.1; short.LiquidationPrice != want {
		t.Fatalf("short liquidation %v, want %v", short.LiquidationPrice, want)
	}
}

func TestPlaceValidationMutatesNothing(t *testing.T) {
	l := NewLedger(10000)

	cases := []struct {
		name string
		req  PlaceRequest
		want error
	}{
		{"zero_quantity", PlaceRequest{Symbol: "BTC-PERP", Side: Buy, Type: MarketOrder, Quantity: 0}, ErrInvalidQuantity},
		{"negative_quantity", PlaceRequest{Symbol: "BTC-PERP", Side: Buy, Type: MarketOrder, Quantity: -1}, ErrInvalidQuantity},
		{"nan_quantity", PlaceRequest{Symbol: "BTC-PERP", Side: Buy, Type: MarketOrder, Quantity: math.NaN()}, ErrInvalidQuantity},
		{"limit_without_price", PlaceRequest{Symbol: "BTC-PERP", Side: Buy, Type: LimitOrder, Quantity: 1}, ErrInvalidPrice},
		{"stop_negative_price", PlaceRequest{Symbol: "BTC-PERP", Side: Sell, Type: StopOrder, Price: fptr(-5), Quantity: 1}, ErrInvalidPrice},
		{"limit_inf_price", PlaceRequest{Symbol: "BTC-PERP", Side: Buy, Type: LimitOrder, Price: fptr(math.Inf(1)), Quantity: 1}, ErrInvalidPrice},
		{"unknown_type", PlaceRequest{Symbol: "BTC-PERP", Side: Buy, Type: "iceberg", Quantity: 1}, ErrInvalidArgument},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.Place(tc.req, "X", 67000, testTime)
			if !errors.Is(err, tc.want) {
				t.Fatalf("error %v, want %v", err, tc.want)
			}
			if len(l.Orders()) != 0 || len(l.Positions()) != 0 {
				t.Fatalf("rejected request mutated state")
			}
		})
	}
}

func TestLimitOrderRestsUntilCancelled(t *testing.T) {
	l := NewLedger(10000)

	res := place(t, l, PlaceRequest{Symbol: "BTC-PERP", Side: Buy, Type: LimitOrder, Price: fptr(66500), Quantity: 0.1}, 67840)

	if res.Executed {
		t.Fatalf("limit order reported as executed")
	}
	orders := l.Orders()
	if len(orders) != 1 {
		t.Fatalf("order count %d, want 1", len(orders))
	}
	o := orders[0]
	if o.Symbol != "BTC-PERP" || o.Side != Buy || o.Type != LimitOrder ||
		o.Price != 66500 || o.Quantity != 0.1 || o.Status != StatusOpen {
		t.Fatalf("unexpected order %+v", o)
	}
	if len(l.Positions()) != 0 {
		t.Fatalf("limit order created a position")
	}

	if err := l.Cancel(o.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(l.Orders()) != 0 {
		t.Fatalf("order survived cancellation")
	}
	if len(l.Positions()) != 0 {
		t.Fatalf("position appeared during cancel")
	}
}

func TestCancelUnknownOrderLeavesPendingSet(t *testing.T) {
	l := NewLedger(10000)
	place(t, l, PlaceRequest{Symbol: "BTC-PERP", Side: Buy, Type: LimitOrder, Price: fptr(66500), Quantity: 0.1}, 67840)

	err := l.Cancel("nope")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("error %v, want ErrOrderNotFound", err)
	}
	if len(l.Orders()) != 1 {
		t.Fatalf("pending set changed on failed cancel")
	}
}

func TestCloseRemovesAllSymbolExposure(t *testing.T) {
	l := NewLedger(10000)
	place(t, l, PlaceRequest{Symbol: "BTC-PERP", Side: Buy, Type: MarketOrder, Quantity: 0.5}, 67000)
	place(t, l, PlaceRequest{Symbol: "BTC-PERP", Side: Sell, Type: MarketOrder, Quantity: 0.2}, 67000)
	place(t, l, PlaceRequest{Symbol: "ETH-PERP", Side: Buy, Type: MarketOrder, Quantity: 2}, 3515)

	closed, err := l.Close("BTC-PERP")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(closed) != 2 {
		t.Fatalf("closed %d positions, want 2", len(closed))
	}

	for _, p := range l.Positions() {
		if p.Symbol == "BTC-PERP" {
			t.Fatalf("BTC-PERP exposure survived close")
		}
	}
	if len(l.Positions()) != 1 {
		t.Fatalf("remaining positions %d, want 1", len(l.Positions()))
	}

	if _, err := l.Close("BTC-PERP"); !errors.Is(err, ErrPositionNotFound) {
		t.Fatalf("second close error %v, want ErrPositionNotFound", err)
	}
}

func TestRecomputePnL(t *testing.T) {
	l := NewLedger(10000)
	place(t, l, PlaceRequest{Symbol: "BTC-PERP", Side: Buy, Type: MarketOrder, Quantity: 0.5}, 67000)
	place(t, l, PlaceRequest{Symbol: "ETH-PERP", Side: Sell, Type: MarketOrder, Quantity: 2}, 3500)

	l.RecomputePnL(map[string]float64{"BTC-PERP": 67200, "ETH-PERP": 3450})

	positions := l.Positions()
	if got, want := positions[0].UnrealizedPnL, (67200.0-67000.0)*0.5; got != want {
		t.Fatalf("long pnl %v, want %v", got, want)
	}
	if got, want := positions[1].UnrealizedPnL, (3500.0-3450.0)*2; got != want {
		t.Fatalf("short pnl %v, want %v", got, want)
	}
	if got, want := l.TotalPnL(), positions[0].UnrealizedPnL+positions[1].UnrealizedPnL; got != want {
		t.Fatalf("total pnl %v, want %v", got, want)
	}

	// A missing mark skips the position and leaves its pnl untouched.
	l.RecomputePnL(map[string]float64{"ETH-PERP": 3400})
	positions = l.Positions()
	if got, want := positions[0].UnrealizedPnL, (67200.0-67000.0)*0.5; got != want {
		t.Fatalf("skipped position pnl changed: %v, want %v", got, want)
	}
	if got, want := positions[1].UnrealizedPnL, (3500.0-3400.0)*2; got != want {
		t.Fatalf("short pnl %v, want %v", got, want)
	}
}

// TotalPnL must equal the sum of position-level values after any
// randomized sequence of fills, closes and recomputations.
func TestTotalPnLInvariantUnderRandomizedActions(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	l := NewLedger(10000)
	symbols := []string{"BTC-PERP", "ETH-PERP", "SOL-PERP"}
	marks := map[string]float64{"BTC-PERP": 67840, "ETH-PERP": 3515, "SOL-PERP": 142}

	for i := 0; i < 1000; i++ {
		sym := symbols[rng.Intn(len(symbols))]
		switch rng.Intn(4) {
		case 0:
			side := Buy
			if rng.Intn(2) == 0 {
				side = Sell
			}
			if _, err := l.Place(PlaceRequest{
				Symbol: sym, Side: side, Type: MarketOrder, Quantity: rng.Float64() + 0.01,
			}, "X", marks[sym], testTime); err != nil {
				t.Fatalf("place: %v", err)
			}
		case 1:
			l.Close(sym) // ErrPositionNotFound is fine here
		default:
			for s := range marks {
				marks[s] *= 1 + (rng.Float64()-0.5)/100
			}
			l.RecomputePnL(marks)
		}

		var sum float64
		for _, p := range l.Positions() {
			sum += p.UnrealizedPnL
		}
		if got := l.TotalPnL(); got != sum {
			t.Fatalf("step %d: total pnl %v != position sum %v", i, got, sum)
		}
	}
}
