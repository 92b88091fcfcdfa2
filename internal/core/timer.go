package core

import (
	"sync"
	"time"
)

// Throttle lets a repeated event through at most perSecond times a second.
// Progress broadcasts use it so a fast worker cannot flood observers.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// NewThrottle constructs a Throttle. perSecond <= 0 falls back to 60.
func NewThrottle(perSecond int) *Throttle {
	if perSecond <= 0 {
		perSecond = 60
	}
	return &Throttle{interval: time.Second / time.Duration(perSecond), now: time.Now}
}

// Allow reports whether enough time has passed since the last allowed event.
func (t *Throttle) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}

// Reset makes the next Allow succeed.
func (t *Throttle) Reset() {
	t.mu.Lock()
	t.last = time.Time{}
	t.mu.Unlock()
}
