package fanout_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/fanout"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

func setup(t *testing.T) (*notifications.MemoryStorage, notifications.Notification) {
	t.Helper()
	store := notifications.NewMemoryStorage()
	n := notifications.Notification{ID: "n1", Subject: "s", Body: "b", Channels: []notifications.Channel{notifications.ChannelEmail}}
	require.NoError(t, store.CreateNotification(context.Background(), n))
	return store, n
}

func userIDs(rs []notifications.Recipient) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.UserID
	}
	return out
}

func TestEngine_FanOut(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates one record per distinct user", func(t *testing.T) {
		t.Parallel()
		store, n := setup(t)
		e := fanout.NewEngine(store, fanout.WithLogger(logger.Discard()))

		got, err := e.FanOut(ctx, n, []string{"u2", "u1", "u2", " ", "u3"})
		require.NoError(t, err)
		assert.Equal(t, []string{"u2", "u1", "u3"}, userIDs(got))

		stored, err := store.ListRecipients(ctx, n.ID)
		require.NoError(t, err)
		assert.Len(t, stored, 3)
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()
		store, n := setup(t)
		e := fanout.NewEngine(store, fanout.WithLogger(logger.Discard()))

		first, err := e.FanOut(ctx, n, []string{"u1", "u2", "u3"})
		require.NoError(t, err)
		second, err := e.FanOut(ctx, n, []string{"u1", "u2", "u3"})
		require.NoError(t, err)
		assert.Equal(t, first, second)

		stored, err := store.ListRecipients(ctx, n.ID)
		require.NoError(t, err)
		assert.Len(t, stored, 3)
	})

	t.Run("returns pre-existing and new records", func(t *testing.T) {
		t.Parallel()
		store, n := setup(t)
		existing, err := store.CreateRecipient(ctx, notifications.Recipient{NotificationID: n.ID, UserID: "u1"})
		require.NoError(t, err)

		got, err := fanout.NewEngine(store, fanout.WithLogger(logger.Discard())).FanOut(ctx, n, []string{"u1", "u2"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, existing.ID, got[0].ID)
		assert.NotEmpty(t, got[1].ID)
	})

	t.Run("empty audience", func(t *testing.T) {
		t.Parallel()
		store, n := setup(t)

		got, err := fanout.NewEngine(store).FanOut(ctx, n, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotNil(t, got)
	})

	t.Run("concurrent callers", func(t *testing.T) {
		t.Parallel()
		store, n := setup(t)
		e := fanout.NewEngine(store, fanout.WithConcurrency(4), fanout.WithLogger(logger.Discard()))

		ids := make([]string, 50)
		for i := range ids {
			ids[i] = fmt.Sprintf("u%02d", i)
		}

		var wg sync.WaitGroup
		results := make([][]notifications.Recipient, 5)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rs, err := e.FanOut(ctx, n, ids)
				assert.NoError(t, err)
				results[i] = rs
			}()
		}
		wg.Wait()

		for _, rs := range results[1:] {
			assert.Equal(t, results[0], rs)
		}
		stored, err := store.ListRecipients(ctx, n.ID)
		require.NoError(t, err)
		assert.Len(t, stored, 50)
	})
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateRecipient(ctx context.Context, r notifications.Recipient) (notifications.Recipient, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(notifications.Recipient), args.Error(1)
}

func (m *mockStore) GetRecipientByUser(ctx context.Context, notificationID, userID string) (notifications.Recipient, error) {
	args := m.Called(ctx, notificationID, userID)
	return args.Get(0).(notifications.Recipient), args.Error(1)
}

func TestEngine_FanOutStoreFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	store := &mockStore{}
	store.On("CreateRecipient", mock.Anything, mock.Anything).Return(notifications.Recipient{}, boom)

	_, err := fanout.NewEngine(store, fanout.WithLogger(logger.Discard())).
		FanOut(context.Background(), notifications.Notification{ID: "n1"}, []string{"u1"})
	assert.ErrorIs(t, err, fanout.ErrFanOutFailed)
	assert.ErrorIs(t, err, boom)
}

func TestEngine_FanOutConflictLoadsExisting(t *testing.T) {
	t.Parallel()

	existing := notifications.Recipient{ID: "r1", NotificationID: "n1", UserID: "u1"}
	store := &mockStore{}
	store.On("CreateRecipient", mock.Anything, mock.Anything).
		Return(notifications.Recipient{}, notifications.ErrDuplicateRecipient).Once()
	store.On("GetRecipientByUser", mock.Anything, "n1", "u1").Return(existing, nil).Once()

	got, err := fanout.NewEngine(store, fanout.WithLogger(logger.Discard())).
		FanOut(context.Background(), notifications.Notification{ID: "n1"}, []string{"u1"})
	require.NoError(t, err)
	assert.Equal(t, []notifications.Recipient{existing}, got)
	store.AssertExpectations(t)
}
