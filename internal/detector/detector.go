// Package detector provides presence signal sources sampled once per tick.
package detector

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrUnavailable is returned when a source cannot run in this build or environment.
var ErrUnavailable = errors.New("presence detector unavailable")

// Source reports whether a subject is present. Implementations must return
// promptly; the controller calls Present once per tick.
type Source interface {
	Present(ctx context.Context) (bool, error)
}

// Static always reports the same value.
type Static bool

func (s Static) Present(context.Context) (bool, error) { return bool(s), nil }

// Scripted replays a fixed sequence of samples and reports false once exhausted.
type Scripted struct {
	mu      sync.Mutex
	samples []bool
	pos     int
}

// NewScripted creates a source replaying samples in order.
func NewScripted(samples ...bool) *Scripted {
	return &Scripted{samples: append([]bool(nil), samples...)}
}

// Repeat returns n copies of v, for building scripts.
func Repeat(v bool, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func (s *Scripted) Present(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.samples) {
		return false, nil
	}
	v := s.samples[s.pos]
	s.pos++
	return v, nil
}

// Remaining returns the number of samples not yet replayed.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples) - s.pos
}

// Push is fed by an external producer such as the HTTP surface. A reported
// presence is latched until the next sample consumes it.
type Push struct {
	latched atomic.Bool
	pushes  atomic.Uint64
}

// NewPush creates an empty latch.
func NewPush() *Push { return &Push{} }

// Report records one observation. Reporting false clears a pending latch.
func (p *Push) Report(present bool) {
	p.latched.Store(present)
	p.pushes.Add(1)
}

// Reports returns how many observations have been pushed.
func (p *Push) Reports() uint64 { return p.pushes.Load() }

func (p *Push) Present(context.Context) (bool, error) {
	return p.latched.Swap(false), nil
}
