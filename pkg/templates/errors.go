package templates

import (
	"errors"
	"fmt"
)

var (
	// ErrTemplateNotFound is returned for unknown and inactive templates.
	ErrTemplateNotFound = errors.New("notification template not found")
	ErrMissingVariable  = errors.New("missing template variable")
	ErrInvalidTemplate  = errors.New("invalid notification template")
	ErrTemplateStore    = errors.New("template store failure")
)

// MissingVariableError names the placeholder that had no value.
type MissingVariableError struct {
	TemplateID string
	Name       string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("template %q: missing variable %q", e.TemplateID, e.Name)
}

func (e *MissingVariableError) Is(target error) bool {
	return target == ErrMissingVariable
}
