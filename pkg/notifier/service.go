package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/audience"
	"github.com/dmitrymomot/notifykit/pkg/dispatcher"
	"github.com/dmitrymomot/notifykit/pkg/fanout"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/readreceipt"
	"github.com/dmitrymomot/notifykit/pkg/templates"
)

// TemplateResolver renders stored templates. *templates.Resolver implements it.
type TemplateResolver interface {
	Resolve(ctx context.Context, id string, vars map[string]string) (templates.Rendered, error)
}

// AudienceResolver expands targets. *audience.Resolver implements it.
type AudienceResolver interface {
	ResolveAudience(ctx context.Context, target audience.Target) ([]string, error)
}

// Dispatcher queues delivery work. *dispatcher.Dispatcher implements it.
type Dispatcher interface {
	DispatchAll(ctx context.Context, n notifications.Notification, recipients []notifications.Recipient) (dispatcher.Report, error)
	Withdraw(ctx context.Context, notificationID string) error
}

// Request describes one send. Either TemplateID or Body must be set.
type Request struct {
	// ID is optional; a uuid is generated when empty.
	ID         string
	TemplateID string
	Variables  map[string]string

	// Subject and Body are used when TemplateID is empty.
	Subject string
	Body    string

	Target   audience.Target
	Channels []notifications.Channel
}

// Result is what Send created.
type Result struct {
	Notification notifications.Notification
	Recipients   []notifications.Recipient
	Report       dispatcher.Report
}

// Service is the entry point of the engine.
type Service struct {
	store     notifications.Storage
	templates TemplateResolver
	audience  AudienceResolver
	fanout    *fanout.Engine
	dispatch  Dispatcher
	tracker   *readreceipt.Tracker
	logger    *slog.Logger
	now       func() time.Time

	fanoutConcurrency int
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFanOutConcurrency bounds parallel recipient creation per Send.
func WithFanOutConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fanoutConcurrency = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(store notifications.Storage, tmpl TemplateResolver, aud AudienceResolver, disp Dispatcher, opts ...Option) *Service {
	s := &Service{
		store:     store,
		templates: tmpl,
		audience:  aud,
		dispatch:  disp,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	fanOpts := []fanout.EngineOption{fanout.WithLogger(s.logger)}
	if s.fanoutConcurrency > 0 {
		fanOpts = append(fanOpts, fanout.WithConcurrency(s.fanoutConcurrency))
	}
	s.fanout = fanout.NewEngine(store, fanOpts...)
	s.tracker = readreceipt.NewTracker(store, readreceipt.WithLogger(s.logger), readreceipt.WithClock(s.now))
	return s
}

// Tracker exposes the read-receipt tracker.
func (s *Service) Tracker() *readreceipt.Tracker { return s.tracker }

// Send renders, persists, fans out and dispatches one notification.
func (s *Service) Send(ctx context.Context, req Request) (*Result, error) {
	n, err := s.render(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := n.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidRequest, err)
	}

	userIDs, err := s.audience.ResolveAudience(ctx, req.Target)
	if err != nil {
		return nil, err
	}

	n.CreatedAt = s.now()
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, errors.Join(ErrPersist, err)
	}
	ctx = logger.WithNotificationID(ctx, n.ID)

	recipients, err := s.fanout.FanOut(ctx, n, userIDs)
	if err != nil {
		return nil, err
	}

	report, err := s.dispatch.DispatchAll(ctx, n, recipients)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "dispatch aborted",
			logger.NotificationID(n.ID), logger.Count("submitted", report.Submitted), logger.Error(err))
		return &Result{Notification: n, Recipients: recipients, Report: report}, errors.Join(ErrDispatch, err)
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "notification accepted",
		logger.NotificationID(n.ID),
		logger.Count("recipients", len(recipients)),
		logger.Count("units", report.Submitted),
	)
	return &Result{Notification: n, Recipients: recipients, Report: report}, nil
}

func (s *Service) render(ctx context.Context, req Request) (notifications.Notification, error) {
	n := notifications.Notification{
		ID:       strings.TrimSpace(req.ID),
		Channels: req.Channels,
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if len(n.Channels) == 0 {
		return n, fmt.Errorf("%w: at least one channel is required", ErrInvalidRequest)
	}

	if id := strings.TrimSpace(req.TemplateID); id != "" {
		out, err := s.templates.Resolve(ctx, id, req.Variables)
		if err != nil {
			return n, err
		}
		n.TemplateID = &out.TemplateID
		n.Subject, n.Body = out.Subject, out.Body
		return n, nil
	}

	if strings.TrimSpace(req.Body) == "" {
		return n, fmt.Errorf("%w: template id or body is required", ErrInvalidRequest)
	}
	n.Subject, n.Body = req.Subject, req.Body
	return n, nil
}

// Withdraw stops dispatch of attempts not yet handed to a transport.
func (s *Service) Withdraw(ctx context.Context, notificationID string) error {
	return s.dispatch.Withdraw(ctx, notificationID)
}

// MarkRead records the read receipt and returns the stored time.
func (s *Service) MarkRead(ctx context.Context, recipientID string, at time.Time) (time.Time, error) {
	return s.tracker.MarkRead(ctx, recipientID, at)
}

// Summary derives the delivery state of every recipient of a notification.
func (s *Service) Summary(ctx context.Context, notificationID string) (notifications.Summary, error) {
	if _, err := s.store.GetNotification(ctx, notificationID); err != nil {
		return notifications.Summary{}, err
	}
	recipients, err := s.store.ListRecipients(ctx, notificationID)
	if err != nil {
		return notifications.Summary{}, err
	}
	logs, err := s.store.ListDeliveryLogs(ctx, notificationID)
	if err != nil {
		return notifications.Summary{}, err
	}
	return notifications.Summarize(notificationID, recipients, logs), nil
}

// CountUnread counts the user's unread notifications.
func (s *Service) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.tracker.CountUnread(ctx, userID)
}
