package notifier_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/audience"
	"github.com/dmitrymomot/notifykit/pkg/broadcast"
	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/dispatcher"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/notifier"
	"github.com/dmitrymomot/notifykit/pkg/templates"
)

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) DispatchAll(ctx context.Context, n notifications.Notification, rs []notifications.Recipient) (dispatcher.Report, error) {
	args := m.Called(ctx, n, rs)
	return args.Get(0).(dispatcher.Report), args.Error(1)
}

func (m *mockDispatcher) Withdraw(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func ptr[T any](v T) *T { return &v }

func templateResolver(t *testing.T) *templates.Resolver {
	t.Helper()
	store, err := templates.NewMemoryStore(
		templates.Template{
			ID:       "report-cards",
			Name:     "Report cards",
			Subject:  ptr("{{term}} report cards"),
			Body:     "Report cards for {{term}} are available.",
			IsActive: true,
		},
		templates.Template{ID: "retired", Body: "old", IsActive: false},
	)
	require.NoError(t, err)
	return templates.NewResolver(store, templates.WithResolverLogger(logger.Discard()))
}

func audienceResolver() *audience.Resolver {
	dir := audience.NewMemoryDirectory()
	dir.SetRole("parent", "p1", "p2", "p3")
	dir.SetGroup("grade-5b", "p2", "s9")
	return audience.NewResolver(dir, audience.WithResolverLogger(logger.Discard()))
}

func TestService_SendEndToEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := notifications.NewMemoryStorage()

	book := dispatcher.NewMemoryAddressBook()
	for _, u := range []string{"p1", "p2", "p3", "s9"} {
		book.Set(u, notifications.ChannelEmail, u+"@school.example")
	}
	book.Set("p3", notifications.ChannelEmail, "")

	email := channel.TransportFunc(func(context.Context, channel.Message) (channel.Ack, error) {
		return channel.Ack{ProviderMessageID: "pm"}, nil
	})
	hub := broadcast.NewHub[channel.InAppMessage](8)
	inApp := channel.NewInAppTransport(hub, channel.WithInAppLogger(logger.Discard()))

	cfg := dispatcher.DefaultConfig()
	cfg.BaseDelay, cfg.MaxDelay, cfg.Jitter = time.Millisecond, time.Millisecond, 0
	disp, err := dispatcher.New(store, cfg,
		dispatcher.WithTransport(notifications.ChannelEmail, email),
		dispatcher.WithTransport(notifications.ChannelInApp, inApp),
		dispatcher.WithAddressBook(book),
		dispatcher.WithLogger(logger.Discard()),
	)
	require.NoError(t, err)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- disp.Run(runCtx)() }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	svc := notifier.New(store, templateResolver(t), audienceResolver(), disp, notifier.WithLogger(logger.Discard()))

	res, err := svc.Send(ctx, notifier.Request{
		TemplateID: "report-cards",
		Variables:  map[string]string{"term": "Fall"},
		Target:     audience.Union(audience.Role("parent"), audience.Group("grade-5b")),
		Channels:   []notifications.Channel{notifications.ChannelEmail, notifications.ChannelInApp},
	})
	require.NoError(t, err)
	assert.Equal(t, "Fall report cards", res.Notification.Subject)
	require.NotNil(t, res.Notification.TemplateID)
	assert.Equal(t, "report-cards", *res.Notification.TemplateID)
	assert.Len(t, res.Recipients, 4)
	assert.Equal(t, 8, res.Report.Submitted)

	var summary notifications.Summary
	assert.Eventually(t, func() bool {
		summary, err = svc.Summary(ctx, res.Notification.ID)
		if err != nil {
			return false
		}
		logs, _ := store.ListDeliveryLogs(ctx, res.Notification.ID)
		for _, l := range logs {
			if l.Status == notifications.StatusPending {
				return false
			}
		}
		return len(logs) == 8
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 4, summary.Counts[notifications.StatusSent])
	for _, rs := range summary.Recipients {
		if rs.UserID == "p3" {
			assert.Equal(t, notifications.StatusFailed, rs.Channels[notifications.ChannelEmail])
			assert.Equal(t, notifications.StatusSent, rs.Channels[notifications.ChannelInApp])
		}
	}

	at, err := svc.MarkRead(ctx, res.Recipients[0].ID, time.Time{})
	require.NoError(t, err)
	assert.False(t, at.IsZero())

	summary, err = svc.Summary(ctx, res.Notification.ID)
	require.NoError(t, err)
	read := 0
	for _, rs := range summary.Recipients {
		if rs.Read {
			read++
		}
	}
	assert.Equal(t, 1, read)
}

func TestService_SendAbortsBeforePersisting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  notifier.Request
		err  error
	}{
		{
			name: "missing variable",
			req:  notifier.Request{ID: "n-1", TemplateID: "report-cards", Target: audience.User("p1"), Channels: []notifications.Channel{notifications.ChannelEmail}},
			err:  templates.ErrMissingVariable,
		},
		{
			name: "unknown template",
			req:  notifier.Request{ID: "n-2", TemplateID: "nope", Target: audience.User("p1"), Channels: []notifications.Channel{notifications.ChannelEmail}},
			err:  templates.ErrTemplateNotFound,
		},
		{
			name: "inactive template",
			req:  notifier.Request{ID: "n-3", TemplateID: "retired", Target: audience.User("p1"), Channels: []notifications.Channel{notifications.ChannelEmail}},
			err:  templates.ErrTemplateNotFound,
		},
		{
			name: "no body",
			req:  notifier.Request{ID: "n-4", Target: audience.User("p1"), Channels: []notifications.Channel{notifications.ChannelEmail}},
			err:  notifier.ErrInvalidRequest,
		},
		{
			name: "no channels",
			req:  notifier.Request{ID: "n-5", Body: "hello", Target: audience.User("p1")},
			err:  notifier.ErrInvalidRequest,
		},
		{
			name: "duplicate channel",
			req:  notifier.Request{ID: "n-6", Body: "hello", Target: audience.User("p1"), Channels: []notifications.Channel{notifications.ChannelSMS, notifications.ChannelSMS}},
			err:  notifications.ErrInvalidNotification,
		},
		{
			name: "invalid target",
			req:  notifier.Request{ID: "n-7", Body: "hello", Target: audience.Role(""), Channels: []notifications.Channel{notifications.ChannelSMS}},
			err:  audience.ErrInvalidTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			store := notifications.NewMemoryStorage()
			disp := &mockDispatcher{}
			svc := notifier.New(store, templateResolver(t), audienceResolver(), disp, notifier.WithLogger(logger.Discard()))

			res, err := svc.Send(ctx, tt.req)
			assert.ErrorIs(t, err, tt.err)
			assert.Nil(t, res)

			_, err = store.GetNotification(ctx, tt.req.ID)
			assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)
			disp.AssertNotCalled(t, "DispatchAll", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestService_SendAdHocEmptyAudience(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := notifications.NewMemoryStorage()

	disp := &mockDispatcher{}
	disp.On("DispatchAll", mock.Anything, mock.Anything, mock.MatchedBy(func(rs []notifications.Recipient) bool {
		return len(rs) == 0
	})).Return(dispatcher.Report{}, nil).Once()

	svc := notifier.New(store, templateResolver(t), audienceResolver(), disp, notifier.WithLogger(logger.Discard()))
	res, err := svc.Send(ctx, notifier.Request{
		Subject:  "Snow day",
		Body:     "School is closed today.",
		Target:   audience.Role("janitor"),
		Channels: []notifications.Channel{notifications.ChannelSMS},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Notification.ID)
	assert.Nil(t, res.Notification.TemplateID)
	assert.Empty(t, res.Recipients)

	stored, err := store.GetNotification(ctx, res.Notification.ID)
	require.NoError(t, err)
	assert.Equal(t, "School is closed today.", stored.Body)
	disp.AssertExpectations(t)
}

func TestService_DispatchErrorKeepsRecipients(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := notifications.NewMemoryStorage()

	disp := &mockDispatcher{}
	disp.On("DispatchAll", mock.Anything, mock.Anything, mock.Anything).
		Return(dispatcher.Report{Submitted: 1}, dispatcher.ErrStopped).Once()

	svc := notifier.New(store, templateResolver(t), audienceResolver(), disp, notifier.WithLogger(logger.Discard()))
	res, err := svc.Send(ctx, notifier.Request{
		Body:     "Bus 12 is running late.",
		Target:   audience.List("p1", "p2", "p1"),
		Channels: []notifications.Channel{notifications.ChannelSMS},
	})
	assert.ErrorIs(t, err, notifier.ErrDispatch)
	assert.ErrorIs(t, err, dispatcher.ErrStopped)
	require.NotNil(t, res)
	assert.Len(t, res.Recipients, 2)

	listed, err := store.ListRecipients(ctx, res.Notification.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestService_WithdrawAndSummary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := notifications.NewMemoryStorage()

	disp := &mockDispatcher{}
	disp.On("Withdraw", mock.Anything, "n-1").Return(nil).Once()
	disp.On("Withdraw", mock.Anything, "missing").Return(notifications.ErrNotificationNotFound).Once()

	svc := notifier.New(store, templateResolver(t), audienceResolver(), disp, notifier.WithLogger(logger.Discard()))

	require.NoError(t, svc.Withdraw(ctx, "n-1"))
	assert.True(t, errors.Is(svc.Withdraw(ctx, "missing"), notifications.ErrNotificationNotFound))

	_, err := svc.Summary(ctx, "missing")
	assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)
	disp.AssertExpectations(t)
}
