package host

import "sync/atomic"

// BlockClock exposes the chain's block counter. All expirations in the
// engines are block-height watermarks, never wall-clock timers.
type BlockClock interface {
	Number() uint64
}

// Counter is a BlockClock backed by an atomic counter. The daemon advances it
// once per tick; tests set it directly.
type Counter struct {
	n atomic.Uint64
}

func NewCounter(start uint64) *Counter {
	c := &Counter{}
	c.n.Store(start)
	return c
}

func (c *Counter) Number() uint64 {
	return c.n.Load()
}

// Advance bumps the block number and returns the new height.
func (c *Counter) Advance() uint64 {
	return c.n.Add(1)
}

func (c *Counter) Set(n uint64) {
	c.n.Store(n)
}
