package engine

import "sync"

// Shutdown is the single handle every task selects on, replacing the
// original source's global condition variables (spec §9 DESIGN NOTES:
// "one Shutdown handle"). Safe to call Trigger from any goroutine, any
// number of times.
type Shutdown struct {
	once sync.Once
	ch   chan struct{}
}

func NewShutdown() *Shutdown {
	return &Shutdown{ch: make(chan struct{})}
}

// Trigger closes the channel exactly once.
func (s *Shutdown) Trigger() {
	s.once.Do(func() { close(s.ch) })
}

// Done returns the channel tasks select on alongside their own work.
func (s *Shutdown) Done() <-chan struct{} { return s.ch }

func (s *Shutdown) Triggered() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}
