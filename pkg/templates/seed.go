package templates

import (
	"context"
	"fmt"
)

// Writer persists templates. *PostgresStore implements it.
type Writer interface {
	Put(ctx context.Context, t Template) error
}

// Seed upserts every template of src into dst and returns how many it wrote.
// Notifications reference templates by foreign key, so a file of templates
// has to land in the database before it can be sent from.
func Seed(ctx context.Context, dst Writer, src *MemoryStore) (int, error) {
	written := 0
	for _, t := range src.List() {
		if err := dst.Put(ctx, t); err != nil {
			return written, fmt.Errorf("seed template %q: %w", t.ID, err)
		}
		written++
	}
	return written, nil
}
