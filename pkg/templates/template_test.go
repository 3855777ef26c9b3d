package templates_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/templates"
)

func ptr(s string) *string { return &s }

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	tpl := templates.Template{
		ID:      "t",
		Subject: ptr("{{studentName}}: {{ term }} report"),
		Body:    "Hello {{guardian.name}}, {{studentName}} scored {{score}}. {{ term}}",
	}
	assert.Equal(t, []string{"studentName", "term", "guardian.name", "score"}, templates.Placeholders(tpl))

	assert.Empty(t, templates.Placeholders(templates.Template{Body: "no markers {here}"}))
}

func TestRender(t *testing.T) {
	t.Parallel()

	tpl := templates.Template{
		ID:      "t1",
		Subject: ptr("Update for {{studentName}}"),
		Body:    "{{studentName}} has a new grade in {{ subject }}.",
	}

	t.Run("complete variables leave no markers", func(t *testing.T) {
		t.Parallel()
		out, err := templates.Render(tpl, map[string]string{"studentName": "Amara", "subject": "Math"})
		require.NoError(t, err)
		assert.Equal(t, "Update for Amara", out.Subject)
		assert.Equal(t, "Amara has a new grade in Math.", out.Body)
		assert.NotContains(t, out.Body, "{{")
		assert.NotContains(t, out.Body, "}}")
	})

	t.Run("missing variable named exactly", func(t *testing.T) {
		t.Parallel()
		_, err := templates.Render(tpl, map[string]string{"studentName": "Amara"})
		require.ErrorIs(t, err, templates.ErrMissingVariable)

		var mv *templates.MissingVariableError
		require.True(t, errors.As(err, &mv))
		assert.Equal(t, "subject", mv.Name)
		assert.Equal(t, "t1", mv.TemplateID)
	})

	t.Run("empty value is supplied", func(t *testing.T) {
		t.Parallel()
		out, err := templates.Render(tpl, map[string]string{"studentName": "", "subject": "Art"})
		require.NoError(t, err)
		assert.Equal(t, " has a new grade in Art.", out.Body)
	})

	t.Run("values are not rescanned", func(t *testing.T) {
		t.Parallel()
		out, err := templates.Render(tpl, map[string]string{"studentName": "{{subject}}", "subject": "Art"})
		require.NoError(t, err)
		assert.Equal(t, "{{subject}} has a new grade in Art.", out.Body)
	})

	t.Run("extra variables ignored", func(t *testing.T) {
		t.Parallel()
		out, err := templates.Render(templates.Template{ID: "x", Body: "plain"}, map[string]string{"a": "b"})
		require.NoError(t, err)
		assert.Equal(t, "plain", out.Body)
		assert.Empty(t, out.Subject)
	})
}

func TestRender_EveryMissingVariable(t *testing.T) {
	t.Parallel()

	tpl := templates.Template{ID: "t", Body: "{{a}} {{b}} {{c}} {{d}}"}
	names := templates.Placeholders(tpl)
	full := map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"}

	for _, missing := range names {
		vars := make(map[string]string, len(full))
		for k, v := range full {
			if k != missing {
				vars[k] = v
			}
		}
		_, err := templates.Render(tpl, vars)

		var mv *templates.MissingVariableError
		require.True(t, errors.As(err, &mv), "missing %s", missing)
		assert.Equal(t, missing, mv.Name)
	}

	out, err := templates.Render(tpl, full)
	require.NoError(t, err)
	assert.Equal(t, "1 2 3 4", out.Body)
	assert.False(t, strings.Contains(out.Body, "{{"))
}
