package race

import (
	"sync/atomic"
)

// Winner is the identity whose membership was confirmed.
type Winner struct {
	Label string
	UID   uint16
}

// Signal is set at most once per cycle, by whoever first confirms a
// membership. Readers never block.
type Signal struct {
	winner atomic.Pointer[Winner]
	done   chan struct{}
}

func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Set records w as the winner. Only the first call has an effect and
// reports true.
func (s *Signal) Set(w Winner) bool {
	if !s.winner.CompareAndSwap(nil, &w) {
		return false
	}
	close(s.done)
	return true
}

func (s *Signal) Fired() bool {
	return s.winner.Load() != nil
}

// Done is closed once the signal is set.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

func (s *Signal) Winner() (Winner, bool) {
	w := s.winner.Load()
	if w == nil {
		return Winner{}, false
	}
	return *w, true
}
