package templates

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dmitrymomot/notifykit/pkg/pg"
)

// PostgresStore reads and writes notification_templates.
type PostgresStore struct {
	db pg.DB
}

func NewPostgresStore(db pg.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetTemplate(ctx context.Context, id string) (Template, error) {
	var (
		t    Template
		vars []byte
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, name, type, subject, body, variables, grade_level, is_active, created_by, created_at, updated_at
		 FROM notification_templates WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Type, &t.Subject, &t.Body, &vars, &t.GradeLevel, &t.IsActive, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if pg.IsNotFoundError(err) {
		return Template{}, ErrTemplateNotFound
	}
	if err != nil {
		return Template{}, errors.Join(ErrTemplateStore, err)
	}

	if len(vars) > 0 {
		if err := json.Unmarshal(vars, &t.Variables); err != nil {
			return Template{}, errors.Join(ErrInvalidTemplate, err)
		}
	}
	return t, nil
}

// Put upserts a template. created_at is kept on update.
func (s *PostgresStore) Put(ctx context.Context, t Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	vars, err := json.Marshal(t.Variables)
	if err != nil {
		return errors.Join(ErrInvalidTemplate, err)
	}
	if t.Variables == nil {
		vars = []byte("{}")
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO notification_templates (id, name, type, subject, body, variables, grade_level, is_active, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
		     name = EXCLUDED.name, type = EXCLUDED.type, subject = EXCLUDED.subject, body = EXCLUDED.body,
		     variables = EXCLUDED.variables, grade_level = EXCLUDED.grade_level, is_active = EXCLUDED.is_active,
		     updated_at = now()`,
		t.ID, t.Name, t.Type, t.Subject, t.Body, vars, t.GradeLevel, t.IsActive, t.CreatedBy,
	)
	if err != nil {
		return errors.Join(ErrTemplateStore, err)
	}
	return nil
}
