package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"labsite/internal/types"
)

// PageRepository provides data access for the public_pages table. Pages are
// the public site sections (about, research, teaching, contact), keyed by
// slug.
type PageRepository struct {
	db DBTX
}

// NewPageRepository creates a new PageRepository backed by the given
// database connection (pool or transaction).
func NewPageRepository(db DBTX) *PageRepository {
	return &PageRepository{db: db}
}

const pageColumns = `slug, title, body_md, updated_at`

func scanPage(row pgx.Row) (*types.Page, error) {
	var p types.Page
	err := row.Scan(&p.Slug, &p.Title, &p.BodyMD, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetBySlug retrieves a single page by slug.
// Returns ErrNotFoundPage if no page exists under that slug.
func (r *PageRepository) GetBySlug(ctx context.Context, slug string) (*types.Page, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+pageColumns+` FROM public_pages WHERE slug = $1`,
		slug,
	)
	p, err := scanPage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundPage, "page not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve page", err)
	}
	return p, nil
}

// List returns all pages ordered by slug.
func (r *PageRepository) List(ctx context.Context) ([]*types.Page, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+pageColumns+` FROM public_pages ORDER BY slug`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list pages", err)
	}
	defer rows.Close()

	var pages []*types.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan page", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list pages", err)
	}
	return pages, nil
}

// Upsert inserts a page or replaces its title and body if the slug already
// exists. updated_at is always bumped on write.
func (r *PageRepository) Upsert(ctx context.Context, page *types.Page) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO public_pages (slug, title, body_md, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (slug) DO UPDATE SET
		   title = EXCLUDED.title,
		   body_md = EXCLUDED.body_md,
		   updated_at = EXCLUDED.updated_at`,
		page.Slug,
		page.Title,
		page.BodyMD,
		page.UpdatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upsert page", err)
	}
	return nil
}

// Delete removes a page by slug.
// Returns ErrNotFoundPage if no page exists under that slug.
func (r *PageRepository) Delete(ctx context.Context, slug string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM public_pages WHERE slug = $1`, slug)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete page", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundPage, "page not found", nil)
	}
	return nil
}
