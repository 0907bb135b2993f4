package indicators

import "fmt"

// EMA computes an exponential moving average over a price stream.
type EMA struct {
	n     int
	alpha float64

	seen  int
	value float64
	ready bool
}

func NewEMA(period int) *EMA {
	if period <= 0 {
		panic("EMA period must be > 0")
	}
	return &EMA{
		n:     period,
		alpha: 2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string    { return fmt.Sprintf("EMA(%d)", e.n) }
func (e *EMA) Warmup() int     { return e.n }
func (e *EMA) Ready() bool     { return e.ready }
func (e *EMA) Value() float64  { return e.value }

func (e *EMA) Reset() {
	e.seen = 0
	e.value = 0
	e.ready = false
}

func (e *EMA) Update(x float64) {
	e.seen++
	if e.seen == 1 {
		// Seed with the first value (simple, deterministic).
		e.value = x
	} else {
		e.value = e.alpha*x + (1.0-e.alpha)*e.value
	}
	if e.seen >= e.n {
		e.ready = true
	}
}

// EMASeries returns the EMA evaluated at every point of xs, aligned
// index-for-index with the input. Used for chart overlays.
func EMASeries(xs []float64, period int) []float64 {
	if len(xs) == 0 {
		return nil
	}
	e := NewEMA(period)
	out := make([]float64, len(xs))
	for i, x := range xs {
		e.Update(x)
		out[i] = e.Value()
	}
	return out
}
