package templates

import "context"

// Store reads templates. GetTemplate returns ErrTemplateNotFound for unknown
// ids; inactive templates are returned and filtered by the Resolver.
type Store interface {
	GetTemplate(ctx context.Context, id string) (Template, error)
}
