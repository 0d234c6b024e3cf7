// Package debounce turns a noisy per-tick presence signal into a threshold trigger.
package debounce

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidThreshold is returned for non-positive thresholds.
var ErrInvalidThreshold = errors.New("debounce threshold must be positive")

// Counter is a saturating presence counter. Ticks without the signal never
// decrement it, so brief dropouts do not cancel a trigger in progress.
type Counter struct {
	mu        sync.Mutex
	count     int
	threshold int
}

// NewCounter creates a counter that becomes due once count exceeds threshold.
func NewCounter(threshold int) (*Counter, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidThreshold, threshold)
	}
	return &Counter{threshold: threshold}, nil
}

// Tick records one sample.
func (c *Counter) Tick(present bool) {
	if !present {
		return
	}
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
}

// Due reports whether the count has crossed the threshold.
func (c *Counter) Due() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count > c.threshold
}

// Reset zeroes the count.
func (c *Counter) Reset() {
	c.mu.Lock()
	c.count = 0
	c.mu.Unlock()
}

// Count returns the number of present samples since the last reset.
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Threshold returns the configured threshold.
func (c *Counter) Threshold() int { return c.threshold }

// Progress returns min(100, round(count/threshold*100)).
func (c *Counter) Progress() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := (c.count*100 + c.threshold/2) / c.threshold
	if p > 100 {
		return 100
	}
	return p
}
