package tree

import "sync/atomic"

// Clock issues node ids. Ids are strictly increasing and never reused,
// even after the node they were issued for is deleted.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// although the tree itself is not.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first id is 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that resumes after start.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next id.
func (c *Clock) Next() NodeID {
	return NodeID(c.seq.Add(1))
}

// Current returns the most recently issued id without advancing.
func (c *Clock) Current() NodeID {
	return NodeID(c.seq.Load())
}
