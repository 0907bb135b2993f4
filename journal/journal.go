package journal

import "time"

// FillRecord is one executed market order.
type FillRecord struct {
	FillID   string
	Symbol   string
	Side     string
	Quantity float64
	Price    float64
	Time     time.Time
}

// EquitySnapshot is the account state at one tick or after one mutating
// action.
type EquitySnapshot struct {
	Time          time.Time
	Balance       float64
	Equity        float64
	TotalPnL      float64
	OpenPositions int
}

// Journal is a write-only record of the session. It never feeds state
// back into the engine, so nothing survives a restart through it.
type Journal interface {
	RecordFill(FillRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Noop discards every record.
type Noop struct{}

func (Noop) RecordFill(FillRecord) error       { return nil }
func (Noop) RecordEquity(EquitySnapshot) error { return nil }
func (Noop) Close() error                      { return nil }
