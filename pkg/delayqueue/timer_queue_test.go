package delayqueue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/delayqueue"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

func entry(recipient string, attempt int, due time.Time) delayqueue.Entry {
	return delayqueue.Entry{
		NotificationID: "n1",
		RecipientID:    recipient,
		UserID:         "u-" + recipient,
		Channel:        notifications.ChannelEmail,
		Attempt:        attempt,
		DueAt:          due,
	}
}

type collector struct {
	mu      sync.Mutex
	entries []delayqueue.Entry
}

func (c *collector) handle(_ context.Context, e delayqueue.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

func (c *collector) recipients() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.RecipientID
	}
	return out
}

func TestTimerQueue(t *testing.T) {
	t.Parallel()

	q := delayqueue.NewTimerQueue()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Now()
	require.NoError(t, q.Push(ctx, entry("early", 2, now)))

	c := &collector{}
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx, c.handle) }()

	require.NoError(t, q.Push(ctx, entry("later", 3, now.Add(50*time.Millisecond))))
	require.NoError(t, q.Push(ctx, entry("never", 2, now.Add(time.Hour))))

	assert.Eventually(t, func() bool { return len(c.recipients()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"early", "later"}, c.recipients())
	assert.Equal(t, 1, q.Len())

	cancel()
	require.NoError(t, <-done)
	assert.ErrorIs(t, q.Push(context.Background(), entry("x", 1, now)), delayqueue.ErrQueueClosed)
	assert.Equal(t, []string{"early", "later"}, c.recipients())
}

func TestTimerQueue_RunTwice(t *testing.T) {
	t.Parallel()

	q := delayqueue.NewTimerQueue()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	started := make(chan struct{})

	require.NoError(t, q.Push(ctx, entry("a", 1, time.Now())))
	go func() {
		done <- q.Run(ctx, func(context.Context, delayqueue.Entry) { close(started) })
	}()
	<-started

	assert.ErrorIs(t, q.Run(ctx, func(context.Context, delayqueue.Entry) {}), delayqueue.ErrAlreadyRunning)
	cancel()
	require.NoError(t, <-done)
}

func TestEntry_Validate(t *testing.T) {
	t.Parallel()

	q := delayqueue.NewTimerQueue()
	ctx := context.Background()

	bad := entry("r", 1, time.Now())
	bad.RecipientID = ""
	assert.ErrorIs(t, q.Push(ctx, bad), delayqueue.ErrInvalidEntry)

	bad = entry("r", 0, time.Now())
	assert.ErrorIs(t, q.Push(ctx, bad), delayqueue.ErrInvalidEntry)
}
