package notifications_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// runStorageContract exercises behaviour every Storage implementation must share.
func runStorageContract(t *testing.T, store notifications.Storage) {
	t.Helper()
	ctx := context.Background()

	newNotification := func(t *testing.T) notifications.Notification {
		t.Helper()
		n := notifications.Notification{
			ID:       uuid.NewString(),
			Subject:  "Report cards",
			Body:     "Report cards are ready",
			Channels: []notifications.Channel{notifications.ChannelEmail, notifications.ChannelSMS},
		}
		require.NoError(t, store.CreateNotification(ctx, n))
		return n
	}

	t.Run("notification round trip", func(t *testing.T) {
		n := newNotification(t)

		got, err := store.GetNotification(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, n.Body, got.Body)
		assert.Equal(t, n.Channels, got.Channels)
		assert.False(t, got.CreatedAt.IsZero())

		assert.ErrorIs(t, store.CreateNotification(ctx, n), notifications.ErrDuplicateNotification)

		_, err = store.GetNotification(ctx, uuid.NewString())
		assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)
	})

	t.Run("withdrawal", func(t *testing.T) {
		n := newNotification(t)

		withdrawn, err := store.IsWithdrawn(ctx, n.ID)
		require.NoError(t, err)
		assert.False(t, withdrawn)

		require.NoError(t, store.WithdrawNotification(ctx, n.ID, time.Now()))
		require.NoError(t, store.WithdrawNotification(ctx, n.ID, time.Now()))

		withdrawn, err = store.IsWithdrawn(ctx, n.ID)
		require.NoError(t, err)
		assert.True(t, withdrawn)

		assert.ErrorIs(t, store.WithdrawNotification(ctx, uuid.NewString(), time.Now()), notifications.ErrNotificationNotFound)
	})

	t.Run("recipient uniqueness", func(t *testing.T) {
		n := newNotification(t)
		user := uuid.NewString()

		r, err := store.CreateRecipient(ctx, notifications.Recipient{NotificationID: n.ID, UserID: user})
		require.NoError(t, err)
		assert.NotEmpty(t, r.ID)
		assert.False(t, r.Read)

		_, err = store.CreateRecipient(ctx, notifications.Recipient{NotificationID: n.ID, UserID: user})
		assert.ErrorIs(t, err, notifications.ErrDuplicateRecipient)

		got, err := store.GetRecipientByUser(ctx, n.ID, user)
		require.NoError(t, err)
		assert.Equal(t, r.ID, got.ID)

		list, err := store.ListRecipients(ctx, n.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("concurrent recipient creation yields one row", func(t *testing.T) {
		n := newNotification(t)
		user := uuid.NewString()

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			created   int
			conflicts int
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.CreateRecipient(ctx, notifications.Recipient{NotificationID: n.ID, UserID: user})
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					created++
				} else if assert.ErrorIs(t, err, notifications.ErrDuplicateRecipient) {
					conflicts++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, created)
		assert.Equal(t, 7, conflicts)
	})

	t.Run("recipient for unknown notification", func(t *testing.T) {
		_, err := store.CreateRecipient(ctx, notifications.Recipient{NotificationID: uuid.NewString(), UserID: "u"})
		assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)

		_, err = store.GetRecipient(ctx, uuid.NewString())
		assert.ErrorIs(t, err, notifications.ErrRecipientNotFound)
	})

	t.Run("mark read keeps first timestamp", func(t *testing.T) {
		n := newNotification(t)
		user := uuid.NewString()
		r, err := store.CreateRecipient(ctx, notifications.Recipient{NotificationID: n.ID, UserID: user})
		require.NoError(t, err)

		unread, err := store.CountUnread(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, 1, unread)

		first := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
		got, err := store.MarkRead(ctx, r.ID, first)
		require.NoError(t, err)
		assert.True(t, first.Equal(got))

		got, err = store.MarkRead(ctx, r.ID, first.Add(time.Hour))
		require.NoError(t, err)
		assert.True(t, first.Equal(got))

		stored, err := store.GetRecipient(ctx, r.ID)
		require.NoError(t, err)
		assert.True(t, stored.Read)
		require.NotNil(t, stored.ReadAt)
		assert.True(t, first.Equal(*stored.ReadAt))

		unread, err = store.CountUnread(ctx, user)
		require.NoError(t, err)
		assert.Zero(t, unread)

		_, err = store.MarkRead(ctx, uuid.NewString(), first)
		assert.ErrorIs(t, err, notifications.ErrRecipientNotFound)
	})

	t.Run("concurrent mark read agrees on the first timestamp", func(t *testing.T) {
		n := newNotification(t)
		r, err := store.CreateRecipient(ctx, notifications.Recipient{NotificationID: n.ID, UserID: uuid.NewString()})
		require.NoError(t, err)

		base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		results := make([]time.Time, 8)
		errs := make([]error, 8)
		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], errs[i] = store.MarkRead(ctx, r.ID, base.Add(time.Duration(i)*time.Minute))
			}()
		}
		wg.Wait()

		for i := range 8 {
			require.NoError(t, errs[i])
			assert.True(t, results[0].Equal(results[i]), "caller %d saw %v, caller 0 saw %v", i, results[i], results[0])
		}
	})

	t.Run("malformed ids are not found", func(t *testing.T) {
		const bad = "not-a-uuid"

		_, err := store.GetNotification(ctx, bad)
		assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)
		assert.ErrorIs(t, store.WithdrawNotification(ctx, bad, time.Now()), notifications.ErrNotificationNotFound)

		withdrawn, err := store.IsWithdrawn(ctx, bad)
		require.NoError(t, err)
		assert.False(t, withdrawn)

		_, err = store.CreateRecipient(ctx, notifications.Recipient{NotificationID: bad, UserID: "u"})
		assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)
		_, err = store.GetRecipient(ctx, bad)
		assert.ErrorIs(t, err, notifications.ErrRecipientNotFound)
		_, err = store.MarkRead(ctx, bad, time.Now())
		assert.ErrorIs(t, err, notifications.ErrRecipientNotFound)

		_, err = store.GetDeliveryLog(ctx, bad)
		assert.ErrorIs(t, err, notifications.ErrDeliveryLogNotFound)
		_, err = store.UpdateDeliveryLog(ctx, bad, notifications.LogUpdate{
			From: notifications.StatusSent, To: notifications.StatusDelivered,
		})
		assert.ErrorIs(t, err, notifications.ErrDeliveryLogNotFound)

		recipients, err := store.ListRecipients(ctx, bad)
		require.NoError(t, err)
		assert.Empty(t, recipients)
		logs, err := store.ListDeliveryLogs(ctx, bad)
		require.NoError(t, err)
		assert.Empty(t, logs)
	})

	t.Run("list by user", func(t *testing.T) {
		user := uuid.NewString()
		var ids []string
		for range 3 {
			n := newNotification(t)
			r, err := store.CreateRecipient(ctx, notifications.Recipient{NotificationID: n.ID, UserID: user})
			require.NoError(t, err)
			ids = append(ids, r.ID)
		}
		_, err := store.MarkRead(ctx, ids[0], time.Now())
		require.NoError(t, err)

		all, err := store.ListRecipientsByUser(ctx, user, notifications.ListOptions{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		unread, err := store.ListRecipientsByUser(ctx, user, notifications.ListOptions{OnlyUnread: true})
		require.NoError(t, err)
		assert.Len(t, unread, 2)

		page, err := store.ListRecipientsByUser(ctx, user, notifications.ListOptions{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Len(t, page, 1)
	})

	t.Run("delivery log lineage", func(t *testing.T) {
		n := newNotification(t)
		r, err := store.CreateRecipient(ctx, notifications.Recipient{NotificationID: n.ID, UserID: uuid.NewString()})
		require.NoError(t, err)

		l, err := store.UpsertDeliveryLog(ctx, n.ID, r.ID, notifications.ChannelEmail)
		require.NoError(t, err)
		assert.Equal(t, notifications.StatusPending, l.Status)
		require.NotNil(t, l.RecipientID)
		assert.Equal(t, r.ID, *l.RecipientID)

		msg := "smtp timeout"
		failed, err := store.UpdateDeliveryLog(ctx, l.ID, notifications.LogUpdate{
			From: notifications.StatusPending, To: notifications.StatusFailed, ErrorMessage: &msg,
		})
		require.NoError(t, err)
		assert.Equal(t, notifications.StatusFailed, failed.Status)

		again, err := store.UpsertDeliveryLog(ctx, n.ID, r.ID, notifications.ChannelEmail)
		require.NoError(t, err)
		assert.Equal(t, l.ID, again.ID)
		assert.Equal(t, notifications.StatusPending, again.Status)
		require.NotNil(t, again.ErrorMessage)
		assert.Equal(t, msg, *again.ErrorMessage)

		sentAt := time.Now().UTC().Truncate(time.Millisecond)
		sent, err := store.UpdateDeliveryLog(ctx, l.ID, notifications.LogUpdate{
			From: notifications.StatusPending, To: notifications.StatusSent, SentAt: &sentAt,
		})
		require.NoError(t, err)
		assert.Equal(t, notifications.StatusSent, sent.Status)
		require.NotNil(t, sent.SentAt)
		require.NotNil(t, sent.ErrorMessage)
		assert.Equal(t, msg, *sent.ErrorMessage)

		_, err = store.UpsertDeliveryLog(ctx, n.ID, r.ID, notifications.ChannelEmail)
		assert.ErrorIs(t, err, notifications.ErrInvalidTransition)

		_, err = store.UpdateDeliveryLog(ctx, l.ID, notifications.LogUpdate{
			From: notifications.StatusPending, To: notifications.StatusFailed,
		})
		assert.ErrorIs(t, err, notifications.ErrInvalidTransition)

		delivered, err := store.UpdateDeliveryLog(ctx, l.ID, notifications.LogUpdate{
			From: notifications.StatusSent, To: notifications.StatusDelivered,
		})
		require.NoError(t, err)
		assert.Equal(t, notifications.StatusDelivered, delivered.Status)

		found, err := store.FindDeliveryLog(ctx, n.ID, r.ID, notifications.ChannelEmail)
		require.NoError(t, err)
		assert.Equal(t, l.ID, found.ID)

		_, err = store.FindDeliveryLog(ctx, n.ID, r.ID, notifications.ChannelSMS)
		assert.ErrorIs(t, err, notifications.ErrDeliveryLogNotFound)
	})

	t.Run("unattributed logs", func(t *testing.T) {
		n := newNotification(t)
		msg := "no transport"

		for range 2 {
			_, err := store.AppendDeliveryLog(ctx, notifications.DeliveryLog{
				NotificationID: n.ID,
				Channel:        notifications.ChannelPush,
				Status:         notifications.StatusFailed,
				ErrorMessage:   &msg,
			})
			require.NoError(t, err)
		}

		rid := "r"
		_, err := store.AppendDeliveryLog(ctx, notifications.DeliveryLog{
			NotificationID: n.ID, RecipientID: &rid, Channel: notifications.ChannelPush, Status: notifications.StatusFailed,
		})
		assert.ErrorIs(t, err, notifications.ErrInvalidDeliveryLog)

		logs, err := store.ListDeliveryLogs(ctx, n.ID)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		for _, l := range logs {
			assert.True(t, l.Unattributed())
		}
	})
}
