package sim

import (
	"time"

	"github.com/rustyeddy/perpterm/market"
)

// AccountView is the session account as the renderer sees it. Balance is
// never actually debited; equity is balance plus aggregate unrealized
// PnL.
type AccountView struct {
	Balance  float64 `json:"balance"`
	Equity   float64 `json:"equity"`
	TotalPnL float64 `json:"totalPnl"`
}

// Snapshot is the read-only projection handed to the renderer after
// every tick and every mutating action. Everything in it is copied;
// holding a snapshot never observes a later mutation.
type Snapshot struct {
	Time        time.Time                     `json:"time"`
	Instruments []market.Instrument           `json:"instruments"`
	Selected    int                           `json:"selected"`
	Prices      map[string]market.PriceState  `json:"prices"`
	Candles     map[string][]market.Candle    `json:"candles"`
	Overlay     []float64                     `json:"overlay,omitempty"`
	Book        market.Book                   `json:"book"`
	Positions   []Position                    `json:"positions"`
	Orders      []Order                       `json:"orders"`
	Account     AccountView                   `json:"account"`
}
