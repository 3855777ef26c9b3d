// Package templates resolves notification templates into rendered subject
// and body text.
//
// Templates reference variables with {{name}} placeholders (inner spaces are
// allowed, {{ name }}). Resolve loads an active template from a Store,
// checks that every referenced placeholder has a value and substitutes the
// values literally in a single pass:
//
//	r := templates.NewResolver(store)
//	out, err := r.Resolve(ctx, "t1", map[string]string{"studentName": "Amara"})
//	switch {
//	case errors.Is(err, templates.ErrTemplateNotFound):
//	case errors.Is(err, templates.ErrMissingVariable):
//	    var mv *templates.MissingVariableError
//	    errors.As(err, &mv) // mv.Name is the missing placeholder
//	}
//
// Values are inserted as-is and never scanned for placeholders, and nothing
// in a template is executed.
//
// MemoryStore keeps templates in memory and can be seeded from YAML with
// LoadYAML or LoadFile. PostgresStore reads the notification_templates table.
package templates
