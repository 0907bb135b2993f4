package indicators

import "fmt"

// SMA computes a simple moving average over a sliding window.
type SMA struct {
	n      int
	window []float64
	sum    float64
}

func NewSMA(period int) *SMA {
	if period <= 0 {
		panic("SMA period must be > 0")
	}
	return &SMA{n: period}
}

func (s *SMA) Name() string { return fmt.Sprintf("SMA(%d)", s.n) }
func (s *SMA) Warmup() int  { return s.n }
func (s *SMA) Ready() bool  { return len(s.window) >= s.n }

func (s *SMA) Value() float64 {
	if len(s.window) == 0 {
		return 0
	}
	return s.sum / float64(len(s.window))
}

func (s *SMA) Update(x float64) {
	s.window = append(s.window, x)
	s.sum += x
	if len(s.window) > s.n {
		s.sum -= s.window[0]
		s.window = s.window[1:]
	}
}

func (s *SMA) Reset() {
	s.window = nil
	s.sum = 0
}
