package delayqueue

import (
	"context"
	"sync"
	"time"
)

// TimerQueue schedules each entry with its own time.AfterFunc timer.
type TimerQueue struct {
	mu      sync.Mutex
	handler Handler
	ctx     context.Context
	timers  map[*time.Timer]struct{}
	pending []Entry
	closed  bool
	wg      sync.WaitGroup
	now     func() time.Time
}

type TimerQueueOption func(*TimerQueue)

func WithTimerClock(now func() time.Time) TimerQueueOption {
	return func(q *TimerQueue) {
		if now != nil {
			q.now = now
		}
	}
}

func NewTimerQueue(opts ...TimerQueueOption) *TimerQueue {
	q := &TimerQueue{timers: make(map[*time.Timer]struct{}), now: time.Now}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *TimerQueue) Push(_ context.Context, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if q.handler == nil {
		q.pending = append(q.pending, e)
		return nil
	}
	q.schedule(e)
	return nil
}

// Run blocks until ctx is done, then stops outstanding timers and waits for
// running handlers. Entries not yet due are discarded.
func (q *TimerQueue) Run(ctx context.Context, h Handler) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if q.handler != nil {
		q.mu.Unlock()
		return ErrAlreadyRunning
	}
	q.handler, q.ctx = h, ctx
	for _, e := range q.pending {
		q.schedule(e)
	}
	q.pending = nil
	q.mu.Unlock()

	<-ctx.Done()

	q.mu.Lock()
	q.closed = true
	for t := range q.timers {
		t.Stop()
	}
	clear(q.timers)
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

// Len reports entries waiting to fire.
func (q *TimerQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.timers) + len(q.pending)
}

// schedule must be called with q.mu held.
func (q *TimerQueue) schedule(e Entry) {
	var t *time.Timer
	t = time.AfterFunc(max(e.DueAt.Sub(q.now()), 0), func() {
		q.mu.Lock()
		delete(q.timers, t)
		if q.closed {
			q.mu.Unlock()
			return
		}
		q.wg.Add(1)
		h, ctx := q.handler, q.ctx
		q.mu.Unlock()

		defer q.wg.Done()
		h(ctx, e)
	})
	q.timers[t] = struct{}{}
}
