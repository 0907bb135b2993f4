package sim

import (
	"fmt"
	"math"
	"time"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// direction returns the position direction a filled order of this side
// produces.
func (s Side) direction() Direction {
	if s == Sell {
		return Short
	}
	return Long
}

type OrderType string

const (
	MarketOrder OrderType = "market"
	LimitOrder  OrderType = "limit"
	StopOrder   OrderType = "stop"
)

type OrderStatus string

// Open is the only modeled status; resting orders live in the pending
// set until explicitly cancelled and are never autonomously filled.
const StatusOpen OrderStatus = "open"

// Order is a resting limit or stop order. Market orders never persist as
// orders; they execute straight into a position.
type Order struct {
	ID        string      `json:"id"`
	Symbol    string      `json:"symbol"`
	Side      Side        `json:"side"`
	Type      OrderType   `json:"type"`
	Price     float64     `json:"price"`
	Quantity  float64     `json:"quantity"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Position is open exposure in one direction on one symbol. The
// liquidation price is illustrative only, fixed at open time.
type Position struct {
	Symbol           string    `json:"symbol"`
	Direction        Direction `json:"direction"`
	Size             float64   `json:"size"`
	EntryPrice       float64   `json:"entryPrice"`
	LiquidationPrice float64   `json:"liquidationPrice"`
	UnrealizedPnL    float64   `json:"unrealizedPnl"`
	OpenTime         time.Time `json:"openTime"`
}

// PlaceRequest describes one order submission. Price must be set for
// limit and stop orders and left nil for market orders.
type PlaceRequest struct {
	Symbol   string
	Side     Side
	Type     OrderType
	Price    *float64
	Quantity float64
}

// PlaceResult reports whether the order executed immediately (market) or
// was accepted into the pending set (limit/stop).
type PlaceResult struct {
	Executed bool      `json:"executed"`
	Price    float64   `json:"price,omitempty"`
	Order    *Order    `json:"order,omitempty"`
	Position *Position `json:"position,omitempty"`
	Note     Note      `json:"note"`
}

// Ledger owns all orders and positions. It is not internally locked; the
// engine serializes access.
type Ledger struct {
	balance   float64
	orders    []*Order
	positions []*Position
}

func NewLedger(balance float64) *Ledger {
	return &Ledger{balance: balance}
}

func (l *Ledger) Balance() float64 { return l.balance }

// validate rejects a request without touching any state.
func (l *Ledger) validate(req PlaceRequest) error {
	if req.Quantity <= 0 || math.IsNaN(req.Quantity) || math.IsInf(req.Quantity, 0) {
		return fmt.Errorf("quantity %v: %w", req.Quantity, ErrInvalidQuantity)
	}
	switch req.Type {
	case MarketOrder:
	case LimitOrder, StopOrder:
		if req.Price == nil {
			return fmt.Errorf("%s order needs a price: %w", req.Type, ErrInvalidPrice)
		}
		p := *req.Price
		if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("price %v: %w", p, ErrInvalidPrice)
		}
	default:
		return fmt.Errorf("order type %q: %w", req.Type, ErrInvalidArgument)
	}
	return nil
}

// Place validates and applies one order. Market orders fill at mark;
// limit and stop orders join the pending set untouched by mark.
func (l *Ledger) Place(req PlaceRequest, id string, mark float64, now time.Time) (PlaceResult, error) {
	if err := l.validate(req); err != nil {
		return PlaceResult{}, err
	}

	if req.Type == MarketOrder {
		pos := l.fillMarket(req.Symbol, req.Side, req.Quantity, mark, now)
		p := *pos
		return PlaceResult{
			Executed: true,
			Price:    mark,
			Position: &p,
			Note:     SuccessNote("%s %v %s filled @ %.2f", req.Side, req.Quantity, req.Symbol, mark),
		}, nil
	}

	o := &Order{
		ID:        id,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Price:     *req.Price,
		Quantity:  req.Quantity,
		Status:    StatusOpen,
		CreatedAt: now,
	}
	l.orders = append(l.orders, o)
	oc := *o
	return PlaceResult{
		Order: &oc,
		Note:  InfoNote("%s %s %v %s @ %.2f accepted", req.Type, req.Side, req.Quantity, req.Symbol, o.Price),
	}, nil
}

// fillMarket grows the same-direction position if one exists, otherwise
// opens a new one. Entry price is never re-averaged on growth; this is
// the one place a size-weighted average would go if that ever changes.
func (l *Ledger) fillMarket(symbol string, side Side, qty, mark float64, now time.Time) *Position {
	dir := side.direction()
	for _, p := range l.positions {
		if p.Symbol == symbol && p.Direction == dir {
			p.Size += qty
			return p
		}
	}

	liq := mark * 0.9
	if dir == Short {
		liq = mark * 1.1
	}
	p := &Position{
		Symbol:           symbol,
		Direction:        dir,
		Size:             qty,
		EntryPrice:       mark,
		LiquidationPrice: liq,
		OpenTime:         now,
	}
	l.positions = append(l.positions, p)
	return p
}

// Cancel removes a pending order by id.
func (l *Ledger) Cancel(id string) error {
	for i, o := range l.orders {
		if o.ID == id {
			l.orders = append(l.orders[:i], l.orders[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("cancel order %q: %w", id, ErrOrderNotFound)
}

// Close removes every position on the symbol, both directions.
func (l *Ledger) Close(symbol string) ([]Position, error) {
	var closed []Position
	kept := l.positions[:0]
	for _, p := range l.positions {
		if p.Symbol == symbol {
			closed = append(closed, *p)
		} else {
			kept = append(kept, p)
		}
	}
	if len(closed) == 0 {
		return nil, fmt.Errorf("close %s: %w", symbol, ErrPositionNotFound)
	}
	l.positions = kept
	return closed, nil
}

// RecomputePnL marks every open position against the supplied prices. A
// missing or non-positive mark skips that position for this tick; this
// is the only field the tick ever writes on a position.
func (l *Ledger) RecomputePnL(marks map[string]float64) {
	for _, p := range l.positions {
		mark, ok := marks[p.Symbol]
		if !ok || mark <= 0 {
			continue
		}
		if p.Direction == Long {
			p.UnrealizedPnL = (mark - p.EntryPrice) * p.Size
		} else {
			p.UnrealizedPnL = (p.EntryPrice - mark) * p.Size
		}
	}
}

// TotalPnL is always derived from the positions, never stored apart.
func (l *Ledger) TotalPnL() float64 {
	var total float64
	for _, p := range l.positions {
		total += p.UnrealizedPnL
	}
	return total
}

// Orders returns a copy of the pending set in submission order.
func (l *Ledger) Orders() []Order {
	out := make([]Order, len(l.orders))
	for i, o := range l.orders {
		out[i] = *o
	}
	return out
}

// Positions returns a copy of the open positions in open order.
func (l *Ledger) Positions() []Position {
	out := make([]Position, len(l.positions))
	for i, p := range l.positions {
		out[i] = *p
	}
	return out
}
