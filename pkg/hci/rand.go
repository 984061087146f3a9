package hci

import (
	"fmt"
	"sync"
)

// RandSource draws access address candidates from the controller's random
// number generator. Each LE Rand command yields two values.
type RandSource struct {
	Adapter *Adapter

	mu      sync.Mutex
	pending []uint32
}

func NewRandSource(a *Adapter) *RandSource {
	return &RandSource{Adapter: a}
}

func (s *RandSource) Uint32() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		r, err := s.Adapter.LERand()
		if err != nil {
			return 0, fmt.Errorf("le rand: %w", err)
		}
		s.pending = append(s.pending, uint32(r), uint32(r>>32))
	}
	v := s.pending[0]
	s.pending = s.pending[1:]
	return v, nil
}
