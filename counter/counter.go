// Package counter tracks the number of edge transitions (pulses) reported by
// an external edge source, relative to when the counter was created. The
// actual edge detection lives behind the EdgeSource interface; this package
// only does the bookkeeping.
package counter

import (
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned when closing a counter that has already been closed.
var ErrClosed = errors.New("counter is closed")

// EdgeSource is the boundary to whatever hardware produces the pulses. Attach
// registers a handler that is called once per edge with the new signal level;
// Detach stops delivery. The panel's pulse input implements this over its
// notification stream.
type EdgeSource interface {
	Attach(handler func(rising bool)) error
	Detach() error
}

// Counter counts rising edges delivered by an EdgeSource.
type Counter struct {
	source EdgeSource

	mu     sync.Mutex
	count  int64
	closed bool
}

// New attaches to the source and starts counting from zero.
func New(source EdgeSource) (*Counter, error) {
	c := &Counter{source: source}
	if err := source.Attach(c.edge); err != nil {
		return nil, fmt.Errorf("Couldn't attach to edge source:\n%w", err)
	}
	return c, nil
}

// edge runs on the source's delivery goroutine. Only rising edges count.
func (c *Counter) edge(rising bool) {
	if !rising {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.count++
}

// Count returns the number of pulses seen since creation or the last
// SetCount/Reset.
func (c *Counter) Count() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// SetCount replaces the current count.
func (c *Counter) SetCount(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = n
}

// Reset sets the count back to zero.
func (c *Counter) Reset() {
	c.SetCount(0)
}

// Close detaches from the edge source. Edges delivered after Close are
// ignored. Closing twice returns ErrClosed.
func (c *Counter) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	c.mu.Unlock()

	return c.source.Detach()
}
