// Package interrupt provides the cooperative cancellation signal shared by the
// session worker, its channel listeners and the pipe retry loops.
package interrupt

import (
	"context"
	"sync"
	"time"
)

// Signal is a resettable, level-triggered cancellation flag. The zero value is
// not usable; use New.
type Signal struct {
	mu  sync.Mutex
	ch  chan struct{}
	set bool
}

// New returns a cleared signal.
func New() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Clear re-arms the signal. Waiters of a previous generation stay released.
func (s *Signal) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set {
		s.ch = make(chan struct{})
		s.set = false
	}
}

// Set raises the signal and releases every waiter. Idempotent.
func (s *Signal) Set() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		s.set = true
		close(s.ch)
	}
}

// Done returns a channel closed when the current generation is set.
func (s *Signal) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch
}

// Context returns a context that is canceled when the current generation of
// the signal is set or parent is done.
func (s *Signal) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	done := s.Done()
	go func() {
		select {
		case <-done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Sleep pauses for d and returns true, or returns false as soon as ctx is
// done. Retry loops observe the signal through the context from Context.
func Sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
