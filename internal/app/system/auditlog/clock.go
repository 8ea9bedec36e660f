// internal/app/system/auditlog/clock.go
package auditlog

import (
	"sync"
	"time"
)

// Clock hands out millisecond timestamps that never go backwards, even when
// the wall clock steps back. Milliseconds match BSON datetime precision, so
// stored order equals issued order.
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewClock wraps now; nil uses time.Now.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Now returns max(wall clock, previous result), in UTC, truncated to ms.
func (c *Clock) Now() time.Time {
	t := c.now().UTC().Truncate(time.Millisecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}

// processClock is shared by every Recorder built without WithClock.
var processClock = NewClock(nil)
