package session

import (
	"sync/atomic"

	"pkt.systems/frontline/schema"
)

// Counter hands out identifiers. View and buffer ids draw from the same
// sequence, so no view id ever equals a buffer id issued by one counter.
// The zero value is ready to use and the first id is 1.
type Counter struct {
	n atomic.Uint64
}

func (c *Counter) next() uint64 {
	return c.n.Add(1)
}

// NextViewID returns a fresh view id.
func (c *Counter) NextViewID() schema.ViewID {
	return schema.ViewID(c.next())
}

// NextBufferID returns a fresh buffer id.
func (c *Counter) NextBufferID() schema.BufferID {
	return schema.BufferID(c.next())
}
