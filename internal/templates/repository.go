package templates

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/veridoc/veridoc/pkg/pagination"
	"github.com/veridoc/veridoc/pkg/query"
	"github.com/veridoc/veridoc/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a template repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "templates"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Template], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "Description")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count templates: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanTemplate)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Template, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	t, err := repository.QueryOne(ctx, r.db, q, args, scanTemplate)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &t, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Template, error) {
	fields, err := normalizeFields(cmd.Fields)
	if err != nil {
		return nil, err
	}

	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}

	q := `
		INSERT INTO templates(name, description, fields)
		VALUES ($1, $2, $3)
		RETURNING id, name, description, version, fields, created_at, updated_at`

	t, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Template, error) {
		return repository.QueryOne(ctx, tx, q, []any{cmd.Name, cmd.Description, fieldsJSON}, scanTemplate)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("template created", "id", t.ID, "name", t.Name, "fields", len(t.Fields))
	return &t, nil
}

// Update replaces a template's metadata and field definitions. When any
// completed verification references the template at its current version,
// the version is bumped instead of mutated so that stored results keep
// pointing at the geometry they were produced against.
func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Template, error) {
	fields, err := normalizeFields(cmd.Fields)
	if err != nil {
		return nil, err
	}

	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}

	referencedQ := `
		SELECT EXISTS (
			SELECT 1 FROM documents d
			JOIN validation_results vr ON vr.document_id = d.id
			WHERE d.template_id = $1 AND d.template_version = (
				SELECT version FROM templates WHERE id = $1
			)
		)`

	updateQ := `
		UPDATE templates
		SET name = $1, description = $2, fields = $3,
			version = version + $4, updated_at = NOW()
		WHERE id = $5
		RETURNING id, name, description, version, fields, created_at, updated_at`

	t, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Template, error) {
		var referenced bool
		if err := tx.QueryRowContext(ctx, referencedQ, id).Scan(&referenced); err != nil {
			return Template{}, fmt.Errorf("check template references: %w", err)
		}

		bump := 0
		if referenced {
			bump = 1
		}

		return repository.QueryOne(ctx, tx, updateQ,
			[]any{cmd.Name, cmd.Description, fieldsJSON, bump, id},
			scanTemplate,
		)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("template updated", "id", t.ID, "version", t.Version)
	return &t, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		var referenced bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM documents WHERE template_id = $1)",
			id,
		).Scan(&referenced)
		if err != nil {
			return struct{}{}, fmt.Errorf("check template references: %w", err)
		}
		if referenced {
			return struct{}{}, ErrInUse
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM templates WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("template deleted", "id", id)
	return nil
}

// normalizeFields validates field definitions and assigns identifiers to
// fields that arrive without one.
func normalizeFields(fields []FieldDefinition) ([]FieldDefinition, error) {
	if len(fields) == 0 {
		return nil, ErrNoFields
	}

	seen := make(map[string]struct{}, len(fields))
	out := make([]FieldDefinition, len(fields))

	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: field %d has no name", ErrInvalidField, i)
		}
		if !f.Box.Valid() {
			return nil, fmt.Errorf("%w: field %q has a degenerate box", ErrInvalidField, f.Name)
		}
		if f.Page < 0 {
			return nil, fmt.Errorf("%w: field %q has a negative page", ErrInvalidField, f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, f.Name)
		}
		seen[f.Name] = struct{}{}

		if f.ID == uuid.Nil {
			f.ID = uuid.New()
		}
		out[i] = f
	}

	return out, nil
}
