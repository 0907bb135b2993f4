package market

// BookLevel is one rung of a synthesized depth ladder. Cumulative is the
// running notional (price x size) from the best level outward.
type BookLevel struct {
	Price      float64 `json:"price"`
	Size       float64 `json:"size"`
	Cumulative float64 `json:"cumulative"`
}

// Book is a synthetic bid/ask ladder around a mid price. Asks ascend
// away from mid, bids descend. Books are regenerated wholesale; there is
// no continuity between consecutive snapshots.
type Book struct {
	Symbol string      `json:"symbol"`
	Mid    float64     `json:"mid"`
	Asks   []BookLevel `json:"asks"`
	Bids   []BookLevel `json:"bids"`
}
