package templates

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Resolver renders stored templates.
type Resolver struct {
	store  Store
	logger *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewResolver(store Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve loads the active template id and renders it with vars.
func (r *Resolver) Resolve(ctx context.Context, id string, vars map[string]string) (Rendered, error) {
	t, err := r.store.GetTemplate(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			return Rendered{}, err
		}
		return Rendered{}, errors.Join(ErrTemplateStore, err)
	}
	if !t.IsActive {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "template is inactive", logger.TemplateID(id))
		return Rendered{}, ErrTemplateNotFound
	}

	out, err := Render(t, vars)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "template variables incomplete",
			logger.TemplateID(id), logger.Error(err))
		return Rendered{}, err
	}
	return out, nil
}
