package broadcast

import (
	"context"
	"sync"
)

// Hub routes messages to subscribers by topic. All methods are safe for
// concurrent use.
type Hub[T any] struct {
	mu         sync.RWMutex
	topics     map[string]map[*subscriber[T]]struct{}
	bufferSize int
	closed     bool
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewHub creates a hub whose subscribers buffer up to bufferSize messages.
// A minimum of 1 is enforced.
func NewHub[T any](bufferSize int) *Hub[T] {
	return &Hub[T]{
		topics:     make(map[string]map[*subscriber[T]]struct{}),
		bufferSize: max(bufferSize, 1),
		done:       make(chan struct{}),
	}
}

// Subscribe registers a subscriber for topic that lives until ctx is done or
// the subscriber is closed.
func (h *Hub[T]) Subscribe(ctx context.Context, topic string) (Subscriber[T], error) {
	if topic == "" {
		return nil, ErrInvalidTopic
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	sub := newSubscriber[T](h.bufferSize)
	sub.onDone = func() { h.remove(topic, sub) }

	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*subscriber[T]]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}

	if ctx.Done() != nil {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			select {
			case <-ctx.Done():
				_ = sub.Close()
			case <-sub.done:
			case <-h.done:
			}
		}()
	}

	return sub, nil
}

// Publish offers msg to every subscriber of topic and returns how many
// accepted it. Subscribers that could not accept it are closed.
func (h *Hub[T]) Publish(_ context.Context, topic string, msg T) (int, error) {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return 0, ErrHubClosed
	}

	var (
		delivered int
		slow      []*subscriber[T]
	)
	for sub := range h.topics[topic] {
		if sub.offer(msg) {
			delivered++
		} else {
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		_ = sub.Close()
	}
	return delivered, nil
}

// Subscribers returns the number of live subscribers of topic.
func (h *Hub[T]) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Close ends every subscription. Subsequent Subscribe and Publish calls
// return ErrHubClosed.
func (h *Hub[T]) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	close(h.done)

	var all []*subscriber[T]
	for _, subs := range h.topics {
		for sub := range subs {
			all = append(all, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range all {
		_ = sub.Close()
	}
	h.wg.Wait()
	return nil
}

func (h *Hub[T]) remove(topic string, sub *subscriber[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.topics, topic)
	}
}
