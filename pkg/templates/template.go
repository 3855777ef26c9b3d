package templates

import (
	"fmt"
	"regexp"
	"time"
)

// Template is a reusable notification pattern.
type Template struct {
	ID         string            `json:"id" yaml:"id"`
	Name       string            `json:"name" yaml:"name"`
	Type       string            `json:"type" yaml:"type"`
	Subject    *string           `json:"subject,omitempty" yaml:"subject,omitempty"`
	Body       string            `json:"body" yaml:"body"`
	Variables  map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"` // placeholder -> description
	GradeLevel *string           `json:"grade_level,omitempty" yaml:"grade_level,omitempty"`
	IsActive   bool              `json:"is_active" yaml:"-"`
	CreatedBy  string            `json:"created_by" yaml:"created_by"`
	CreatedAt  time.Time         `json:"created_at" yaml:"-"`
	UpdatedAt  time.Time         `json:"updated_at" yaml:"-"`
}

// Rendered is the output of Resolve.
type Rendered struct {
	TemplateID string
	Subject    string
	Body       string
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_.]*)\s*\}\}`)

// Validate checks the fields a stored template needs.
func (t Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidTemplate)
	}
	if t.Body == "" {
		return fmt.Errorf("%w: template %q has an empty body", ErrInvalidTemplate, t.ID)
	}
	return nil
}

// Placeholders lists the variable names referenced by subject and body,
// deduplicated, in order of first appearance.
func Placeholders(t Template) []string {
	seen := make(map[string]struct{})
	var names []string
	collect := func(s string) {
		for _, m := range placeholderRe.FindAllStringSubmatch(s, -1) {
			if _, ok := seen[m[1]]; ok {
				continue
			}
			seen[m[1]] = struct{}{}
			names = append(names, m[1])
		}
	}
	if t.Subject != nil {
		collect(*t.Subject)
	}
	collect(t.Body)
	return names
}

// Render substitutes vars into t. It fails with *MissingVariableError for
// the first placeholder without a value.
func Render(t Template, vars map[string]string) (Rendered, error) {
	for _, name := range Placeholders(t) {
		if _, ok := vars[name]; !ok {
			return Rendered{}, &MissingVariableError{TemplateID: t.ID, Name: name}
		}
	}

	out := Rendered{TemplateID: t.ID, Body: substitute(t.Body, vars)}
	if t.Subject != nil {
		out.Subject = substitute(*t.Subject, vars)
	}
	return out, nil
}

func substitute(s string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		return vars[name]
	})
}
