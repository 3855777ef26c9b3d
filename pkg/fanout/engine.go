package fanout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// Store is the part of notifications.RecipientStore fan-out needs.
type Store interface {
	CreateRecipient(ctx context.Context, r notifications.Recipient) (notifications.Recipient, error)
	GetRecipientByUser(ctx context.Context, notificationID, userID string) (notifications.Recipient, error)
}

// Engine fans notifications out to recipients.
type Engine struct {
	store       Store
	concurrency int
	logger      *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithConcurrency bounds parallel record creation. Default 16.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewEngine(store Store, opts ...EngineOption) *Engine {
	e := &Engine{store: store, concurrency: 16, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FanOut ensures a recipient record exists for each id and returns them in
// input order, one per distinct non-blank id.
func (e *Engine) FanOut(ctx context.Context, n notifications.Notification, recipientIDs []string) ([]notifications.Recipient, error) {
	ids := distinct(recipientIDs)
	out := make([]notifications.Recipient, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, userID := range ids {
		g.Go(func() error {
			r, err := e.ensure(gctx, n.ID, userID)
			if err != nil {
				return fmt.Errorf("user %s: %w", userID, err)
			}
			out[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		e.logger.LogAttrs(ctx, slog.LevelError, "fan-out failed",
			logger.NotificationID(n.ID), logger.Count("recipients", len(ids)), logger.Error(err))
		return nil, errors.Join(ErrFanOutFailed, err)
	}

	e.logger.LogAttrs(ctx, slog.LevelDebug, "fan-out complete",
		logger.NotificationID(n.ID), logger.Count("recipients", len(out)))
	return out, nil
}

func (e *Engine) ensure(ctx context.Context, notificationID, userID string) (notifications.Recipient, error) {
	r, err := e.store.CreateRecipient(ctx, notifications.Recipient{NotificationID: notificationID, UserID: userID})
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, notifications.ErrDuplicateRecipient) {
		return notifications.Recipient{}, err
	}
	return e.store.GetRecipientByUser(ctx, notificationID, userID)
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
