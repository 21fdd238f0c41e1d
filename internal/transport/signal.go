package transport

import "sync"

// Signal is a one-shot flag that can be polled or waited on.
// Once set it stays set.
type Signal struct {
	once sync.Once
	ch   chan struct{}
}

// NewSignal returns an unset signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Set raises the signal. It reports whether this call was the one that set it.
func (s *Signal) Set() bool {
	first := false
	s.once.Do(func() {
		close(s.ch)
		first = true
	})
	return first
}

// IsSet reports whether the signal has been raised. It never blocks.
func (s *Signal) IsSet() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed when the signal is raised.
func (s *Signal) Done() <-chan struct{} {
	return s.ch
}
