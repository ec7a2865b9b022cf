// Package clock provides the monotonic logical timestamp source shared by
// the storage backends.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock issues strictly increasing millisecond timestamps. When the wall
// clock does not advance between calls (or moves backwards), the next value
// is last+1, so concurrent callers still observe a total order. The zero
// value is ready to use.
type Clock struct {
	last atomic.Int64
}

// Now returns the next logical timestamp.
func (c *Clock) Now() int64 {
	wall := time.Now().UnixMilli()
	for {
		prev := c.last.Load()
		next := wall
		if next <= prev {
			next = prev + 1
		}
		if c.last.CompareAndSwap(prev, next) {
			return next
		}
	}
}
