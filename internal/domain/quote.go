package domain

import "time"

// Quote is a synthetic market snapshot for one instrument.
// Quotes are never mutated; a stale quote is replaced by a new one.
type Quote struct {
	ISIN        string
	Bid         float64
	Ask         float64
	Last        float64
	GeneratedAt time.Time
}

// Mid returns (bid+ask)/2.
func (q *Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}
