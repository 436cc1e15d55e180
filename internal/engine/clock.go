package engine

import "sync/atomic"

// Clock is a monotonic logical clock stamping each applied scan with a
// sequence number. Anomaly records and admission outcomes carry the number
// of the scan that produced them.
//
// Thread-safety: Clock is safe for concurrent use. The engine's single-writer
// design means only the processing path calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
