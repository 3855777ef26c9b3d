package broadcast

import "sync"

// Subscriber receives messages published to one topic.
type Subscriber[T any] interface {
	// Receive returns the delivery channel. It is closed when the
	// subscription ends.
	Receive() <-chan T
	// Close ends the subscription. Safe to call more than once.
	Close() error
}

type subscriber[T any] struct {
	ch     chan T
	done   chan struct{}
	closed bool
	mu     sync.RWMutex
	onDone func()
}

func newSubscriber[T any](size int) *subscriber[T] {
	return &subscriber[T]{ch: make(chan T, size), done: make(chan struct{})}
}

func (s *subscriber[T]) Receive() <-chan T { return s.ch }

func (s *subscriber[T]) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.ch)
	close(s.done)
	onDone := s.onDone
	s.mu.Unlock()

	if onDone != nil {
		onDone()
	}
	return nil
}

// offer delivers msg without blocking and reports whether it was accepted.
func (s *subscriber[T]) offer(msg T) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}
	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}
