package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/lvillar/psyreport/schema"
)

// TemplatePatch is a partial template update. Nil fields are left unchanged.
type TemplatePatch struct {
	Name        *string           `json:"name"`
	Category    *schema.Category  `json:"category"`
	Description *string           `json:"description"`
	Sections    *[]schema.Section `json:"sections"`
	Starred     *bool             `json:"isStarred"`
}

// Apply returns t with the patch applied. Version and timestamps are not
// touched.
func (p TemplatePatch) Apply(t schema.Template) schema.Template {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Sections != nil {
		t.Sections = *p.Sections
	}
	if p.Starred != nil {
		t.Starred = *p.Starred
	}
	return t
}

// CreateTemplate stores t for owner and returns it with its id, version and
// timestamps set.
func (s *Store) CreateTemplate(ctx context.Context, owner string, t schema.Template) (schema.Template, error) {
	sections, err := json.Marshal(nonNil(t.Sections))
	if err != nil {
		return schema.Template{}, fmt.Errorf("store: encoding sections: %w", err)
	}

	t.ID = uuid.NewString()
	t.OwnerID = owner
	t.Version = 1
	t.CreatedAt = s.now().UTC()
	t.UpdatedAt = t.CreatedAt
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO template (id, owner_id, name, category, description, sections, starred, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.Name, t.Category, t.Description, string(sections), t.Starred, t.Version,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return schema.Template{}, fmt.Errorf("store: inserting template: %w", err)
	}
	return t, nil
}

// ListTemplates returns the templates of owner, newest first.
func (s *Store) ListTemplates(ctx context.Context, owner string) ([]schema.Template, error) {
	rows, err := s.db.QueryContext(ctx, templateSelect+`
		WHERE owner_id = ?
		ORDER BY created_at DESC, rowid DESC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("store: listing templates: %w", err)
	}
	defer rows.Close()

	templates := []schema.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (s *Store) Template(ctx context.Context, id string) (schema.Template, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx, templateSelect+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Template{}, ErrNotFound
	}
	return t, err
}

// UpdateTemplate applies patch to the template and increments its version.
// check, when not nil, vets the patched template before it is written.
func (s *Store) UpdateTemplate(ctx context.Context, id string, patch TemplatePatch, check func(*schema.Template) error) (schema.Template, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return schema.Template{}, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	t, err := scanTemplate(tx.QueryRowContext(ctx, templateSelect+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Template{}, ErrNotFound
	}
	if err != nil {
		return schema.Template{}, err
	}

	t = patch.Apply(t)
	if check != nil {
		if err := check(&t); err != nil {
			return schema.Template{}, err
		}
	}
	sections, err := json.Marshal(nonNil(t.Sections))
	if err != nil {
		return schema.Template{}, fmt.Errorf("store: encoding sections: %w", err)
	}
	t.Version++
	t.UpdatedAt = s.now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE template
		SET name = ?, category = ?, description = ?, sections = ?, starred = ?, version = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, t.Category, t.Description, string(sections), t.Starred, t.Version, t.UpdatedAt,
		id,
	)
	if err != nil {
		return schema.Template{}, fmt.Errorf("store: updating template: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return schema.Template{}, fmt.Errorf("store: commit: %w", err)
	}
	return t, nil
}

func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM template WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("store: deleting template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const templateSelect = `
	SELECT id, owner_id, name, category, description, sections, starred, version, created_at, updated_at
	FROM template`

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner) (schema.Template, error) {
	var t schema.Template
	var sections string
	err := row.Scan(&t.ID, &t.OwnerID, &t.Name, &t.Category, &t.Description, &sections,
		&t.Starred, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, err
		}
		return t, fmt.Errorf("store: scanning template: %w", err)
	}
	if err := json.Unmarshal([]byte(sections), &t.Sections); err != nil {
		return t, fmt.Errorf("store: decoding sections of %s: %w", t.ID, err)
	}
	return t, nil
}

func nonNil(s []schema.Section) []schema.Section {
	if s == nil {
		return []schema.Section{}
	}
	return s
}
