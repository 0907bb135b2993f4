package sim

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/perpterm/indicators"
	"github.com/rustyeddy/perpterm/journal"
	"github.com/rustyeddy/perpterm/market"
	"github.com/rustyeddy/perpterm/pkg/id"
)

// EMA period for the chart overlay series in snapshots.
const overlayPeriod = 20

// Settings are the engine constants fixed at construction.
type Settings struct {
	TickInterval   time.Duration
	BarDuration    time.Duration
	HistoryDepth   int
	BookDepth      int
	InitialBalance float64
}

func DefaultSettings() Settings {
	return Settings{
		TickInterval:   600 * time.Millisecond,
		BarDuration:    time.Minute,
		HistoryDepth:   80,
		BookDepth:      DefaultBookDepth,
		InitialBalance: 10_000,
	}
}

// Engine owns all mutable simulation state: candle series, price states,
// the synthesized book, orders and positions. One mutex serializes the
// tick against user actions, so a position's structural fields are never
// read mid-update by the PnL pass.
type Engine struct {
	mu       sync.Mutex
	settings Settings
	registry *market.Registry
	gen      *Generator
	ledger   *Ledger
	journal  journal.Journal
	log      *logrus.Logger
	rng      *rand.Rand

	selected int
	book     market.Book

	subs    []chan Snapshot
	done    chan struct{}
	wg      sync.WaitGroup
	started bool
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithRand injects the random source so tests can run deterministic
// walks.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

func WithJournal(j journal.Journal) Option {
	return func(e *Engine) { e.journal = j }
}

func WithLogger(log *logrus.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// NewEngine builds an engine and seeds the candle history for every
// instrument, ending at now. One engine per session; nothing is global.
func NewEngine(reg *market.Registry, settings Settings, opts ...Option) *Engine {
	e := &Engine{
		settings: settings,
		registry: reg,
		ledger:   NewLedger(settings.InitialBalance),
		journal:  journal.Noop{},
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if e.log == nil {
		e.log = logrus.New()
	}

	e.gen = NewGenerator(reg, settings.HistoryDepth, settings.BarDuration, e.rng)
	e.gen.Seed(time.Now())
	e.refreshBookLocked()
	return e
}

// Start launches the simulation clock. Ticks are fire-and-forget: they
// fire at the configured cadence regardless of how fast consumers drain
// snapshots.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.mu.Unlock()

	e.log.WithField("tick", e.settings.TickInterval).Info("simulation started")

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.settings.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-e.done:
				return
			case now := <-ticker.C:
				e.Advance(now)
			}
		}
	}()
}

// Stop halts the clock and waits for the in-flight tick to finish.
// Subscriber channels are closed so consumers can range over them.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	e.started = false
	e.mu.Unlock()

	close(e.done)
	e.wg.Wait()

	e.mu.Lock()
	for _, ch := range e.subs {
		close(ch)
	}
	e.subs = nil
	e.mu.Unlock()

	e.log.Info("simulation stopped")
}

// Advance runs one simulation step: all price states first, then all
// candle series, then PnL against the finalized marks, then the selected
// instrument's book. Everything happens under one lock, so a snapshot
// never mixes prices and PnL from different ticks.
func (e *Engine) Advance(now time.Time) {
	e.mu.Lock()
	e.gen.AdvancePrices(now)
	e.gen.AdvanceCandles(now)
	e.ledger.RecomputePnL(e.gen.Prices().Marks())
	e.refreshBookLocked()
	e.recordEquityLocked(now)
	snap := e.snapshotLocked(now)
	e.mu.Unlock()

	e.publish(snap)
}

// refreshBookLocked regenerates the book for the selected instrument.
// Only the displayed instrument's book is ever computed.
func (e *Engine) refreshBookLocked() {
	in, ok := e.registry.At(e.selected)
	if !ok {
		return
	}
	mid, ok := e.gen.Mark(in.Symbol)
	if !ok {
		return
	}
	b, err := SynthesizeBook(in.Symbol, mid, in.TickSize, e.settings.BookDepth, e.rng)
	if err != nil {
		// Generator marks are clamped positive, so this indicates a bug.
		e.log.WithError(err).Warn("book synthesis failed")
		return
	}
	e.book = b
}

// SelectInstrument switches which instrument's book and chart the
// snapshot carries.
func (e *Engine) SelectInstrument(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.registry.At(index); !ok {
		return fmt.Errorf("select instrument %d: %w", index, ErrInvalidInstrumentIndex)
	}
	e.selected = index
	e.refreshBookLocked()
	return nil
}

// PlaceOrder submits an order against the selected instrument. Market
// orders fill immediately at the current mid; limit and stop orders rest
// until cancelled.
func (e *Engine) PlaceOrder(side Side, typ OrderType, price *float64, quantity float64) (PlaceResult, error) {
	now := time.Now()

	e.mu.Lock()
	in, _ := e.registry.At(e.selected)
	mark, ok := e.gen.Mark(in.Symbol)
	if !ok && typ == MarketOrder {
		e.mu.Unlock()
		return PlaceResult{}, fmt.Errorf("no mark for %s: %w", in.Symbol, market.ErrPriceNotFound)
	}

	res, err := e.ledger.Place(PlaceRequest{
		Symbol:   in.Symbol,
		Side:     side,
		Type:     typ,
		Price:    price,
		Quantity: quantity,
	}, id.New(), mark, now)
	if err != nil {
		e.mu.Unlock()
		return PlaceResult{}, err
	}

	if res.Executed {
		if jerr := e.journal.RecordFill(journal.FillRecord{
			FillID:   id.New(),
			Symbol:   in.Symbol,
			Side:     string(side),
			Quantity: quantity,
			Price:    res.Price,
			Time:     now,
		}); jerr != nil {
			e.log.WithError(jerr).Warn("journal fill failed")
		}
	}
	e.recordEquityLocked(now)
	e.mu.Unlock()

	if res.Executed {
		e.log.WithFields(logrus.Fields{
			"symbol": in.Symbol,
			"side":   side,
			"qty":    quantity,
			"price":  res.Price,
		}).Info("market order filled")
	}
	return res, nil
}

// CancelOrder removes a resting order. Cancelling an unknown id reports
// ErrOrderNotFound and changes nothing.
func (e *Engine) CancelOrder(orderID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Cancel(orderID)
}

// ClosePosition removes all of the symbol's exposure, both directions.
func (e *Engine) ClosePosition(symbol string) error {
	now := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	closed, err := e.ledger.Close(symbol)
	if err != nil {
		return err
	}
	for _, p := range closed {
		e.log.WithFields(logrus.Fields{
			"symbol":    p.Symbol,
			"direction": p.Direction,
			"size":      p.Size,
			"pnl":       p.UnrealizedPnL,
		}).Info("position closed")
	}
	e.recordEquityLocked(now)
	return nil
}

// Snapshot assembles the read-only view for the renderer.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked(time.Now())
}

func (e *Engine) snapshotLocked(now time.Time) Snapshot {
	candles := make(map[string][]market.Candle, e.registry.Len())
	for _, in := range e.registry.All() {
		if s := e.gen.Series(in.Symbol); s != nil {
			candles[in.Symbol] = s.Clone()
		}
	}

	var overlay []float64
	in, _ := e.registry.At(e.selected)
	if s := e.gen.Series(in.Symbol); s != nil {
		overlay = indicators.EMASeries(s.Closes(), overlayPeriod)
	}

	total := e.ledger.TotalPnL()
	return Snapshot{
		Time:        now,
		Instruments: e.registry.All(),
		Selected:    e.selected,
		Prices:      e.gen.Prices().All(),
		Candles:     candles,
		Overlay:     overlay,
		// The book is regenerated wholesale each tick, never patched in
		// place, so sharing its level slices is safe.
		Book:      e.book,
		Positions: e.ledger.Positions(),
		Orders:    e.ledger.Orders(),
		Account: AccountView{
			Balance:  e.ledger.Balance(),
			Equity:   e.ledger.Balance() + total,
			TotalPnL: total,
		},
	}
}

func (e *Engine) recordEquityLocked(now time.Time) {
	total := e.ledger.TotalPnL()
	if err := e.journal.RecordEquity(journal.EquitySnapshot{
		Time:          now,
		Balance:       e.ledger.Balance(),
		Equity:        e.ledger.Balance() + total,
		TotalPnL:      total,
		OpenPositions: len(e.ledger.Positions()),
	}); err != nil {
		e.log.WithError(err).Warn("journal equity failed")
	}
}

// Subscribe returns a channel that receives one snapshot per tick. Slow
// consumers drop frames; the tick never blocks on them. The channel is
// closed by Stop or by the returned cancel func.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	e.mu.Lock()
	e.subs = append(e.subs, ch)
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, c := range e.subs {
			if c == ch {
				e.subs = append(e.subs[:i], e.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

func (e *Engine) publish(snap Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
