package audience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Resolver expands targets through a Directory.
type Resolver struct {
	dir    Directory
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

func NewResolver(dir Directory, opts ...ResolverOption) *Resolver {
	r := &Resolver{dir: dir, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveAudience returns the sorted, deduplicated user ids for target.
// Blank ids are dropped.
func (r *Resolver) ResolveAudience(ctx context.Context, target Target) ([]string, error) {
	set := make(map[string]struct{})
	if err := r.collect(ctx, target, set); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	if len(ids) == 0 {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "audience is empty",
			slog.String("target", target.String()),
			logger.Error(ErrAudienceEmpty),
		)
	}
	return ids, nil
}

func (r *Resolver) collect(ctx context.Context, t Target, set map[string]struct{}) error {
	var (
		ids []string
		err error
	)

	switch t.kind {
	case KindUser:
		ids = []string{t.value}
	case KindList:
		ids = t.ids
	case KindRole:
		if t.value == "" {
			return fmt.Errorf("%w: role name is empty", ErrInvalidTarget)
		}
		ids, err = r.dir.ResolveRoleMembers(ctx, t.value)
	case KindGroup:
		if t.value == "" {
			return fmt.Errorf("%w: group name is empty", ErrInvalidTarget)
		}
		ids, err = r.dir.ResolveGroupMembers(ctx, t.value)
	case KindUnion:
		for _, part := range t.parts {
			if err := r.collect(ctx, part, set); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidTarget, t.kind)
	}
	if err != nil {
		return errors.Join(ErrDirectoryLookup, fmt.Errorf("%s: %w", t, err))
	}

	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = struct{}{}
		}
	}
	return nil
}
