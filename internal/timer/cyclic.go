// Package timer provides the wall-clock aligned rotation timer.
package timer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "timer")

const (
	MinPeriodSeconds = 1
	MaxPeriodSeconds = 3600
)

var (
	// ErrInvalidPeriod is returned when a period lies outside [MinPeriodSeconds, MaxPeriodSeconds].
	ErrInvalidPeriod = errors.New("timer period out of range")
	// ErrNotArmed is returned by Restart when no period completion has been observed.
	ErrNotArmed = errors.New("timer not armed")
	// ErrProgressOutOfRange signals an internal fault in the progress computation.
	ErrProgressOutOfRange = errors.New("timer progress out of range")
)

// Cycle is a repeating period that reports completion as an edge-triggered hit.
type Cycle interface {
	Progress() (int, error)
	Hit() bool
	Restart() error
}

// Cyclic is a repeating percentage timer aligned to the local wall clock.
//
// Rollover is inferred when the freshly computed progress is lower than the
// previously observed one. While a hit is pending the timer reports 100 and
// stops observing the clock until Restart is called. More than one full period
// elapsing between two calls is indistinguishable from none.
type Cyclic struct {
	mu           sync.Mutex
	period       time.Duration
	now          func() time.Time
	lastProgress int
	hit          bool
}

// NewCyclic creates a timer with the given period in seconds. A nil clock uses time.Now.
func NewCyclic(periodSeconds int, now func() time.Time) (*Cyclic, error) {
	if periodSeconds < MinPeriodSeconds || periodSeconds > MaxPeriodSeconds {
		return nil, fmt.Errorf("%w: %d seconds", ErrInvalidPeriod, periodSeconds)
	}
	if now == nil {
		now = time.Now
	}
	return &Cyclic{
		period: time.Duration(periodSeconds) * time.Second,
		now:    now,
	}, nil
}

// Period returns the configured period.
func (c *Cyclic) Period() time.Duration { return c.period }

// Progress returns the percentage of the current period that has elapsed.
func (c *Cyclic) Progress() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hit {
		return 100, nil
	}

	p := c.compute(c.now())
	if p < 0 || p > 100 {
		log.Errorf("invalid progress %d (period %v)", p, c.period)
		return 0, fmt.Errorf("%w: %d", ErrProgressOutOfRange, p)
	}
	if p < c.lastProgress {
		log.Debugf("period rollover detected (%d -> %d)", c.lastProgress, p)
		c.hit = true
		return 100, nil
	}
	c.lastProgress = p
	return p, nil
}

// Hit reports whether a period completion is pending.
func (c *Cyclic) Hit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hit
}

// Restart clears a pending hit so that rollover detection resumes.
func (c *Cyclic) Restart() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hit {
		log.Warn("attempted to restart a timer that has not been hit")
		return ErrNotArmed
	}
	c.hit = false
	c.lastProgress = 0
	return nil
}

// compute derives ceil(elapsed/period*100) from local wall-clock milliseconds.
func (c *Cyclic) compute(t time.Time) int {
	_, offset := t.Zone()
	periodMs := c.period.Milliseconds()
	wallMs := t.UnixMilli() + int64(offset)*1000
	elapsed := wallMs % periodMs
	if elapsed < 0 {
		elapsed += periodMs
	}
	return int((elapsed*100 + periodMs - 1) / periodMs)
}
