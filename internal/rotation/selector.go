// Package rotation advances the currently offered instrument through the catalog.
package rotation

import (
	"fmt"
	"sync"

	"PresenceTrader/internal/model"
)

// Catalog is the read-only instrument source the selector walks.
type Catalog interface {
	Get(index int) (model.Instrument, error)
	Size() int
}

// Selector tracks the index of the instrument currently offered for purchase.
type Selector struct {
	mu      sync.RWMutex
	catalog Catalog
	index   int
	current model.Instrument
}

// NewSelector starts the rotation at start, which must be a valid catalog index.
func NewSelector(c Catalog, start int) (*Selector, error) {
	inst, err := c.Get(start)
	if err != nil {
		return nil, fmt.Errorf("start index: %w", err)
	}
	return &Selector{catalog: c, index: start, current: inst}, nil
}

// Advance moves to the next instrument, wrapping at the end of the catalog.
func (s *Selector) Advance() (model.Instrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.catalog.Size()
	next := ((s.index+1)%n + n) % n
	inst, err := s.catalog.Get(next)
	if err != nil {
		return model.Instrument{}, err
	}
	s.index = next
	s.current = inst
	return inst, nil
}

// Current returns the selected instrument without moving.
func (s *Selector) Current() model.Instrument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Index returns the selected catalog index.
func (s *Selector) Index() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}
