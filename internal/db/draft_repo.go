package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"labsite/internal/types"
)

// DraftRepository provides data access for the linkedin_drafts table.
type DraftRepository struct {
	db DBTX
}

// NewDraftRepository creates a new DraftRepository backed by the given
// database connection (pool or transaction).
func NewDraftRepository(db DBTX) *DraftRepository {
	return &DraftRepository{db: db}
}

const draftColumns = `id, body, hashtags, source_slug, created_at, updated_at`

func scanDraft(row pgx.Row) (*types.LinkedInDraft, error) {
	var d types.LinkedInDraft
	var sourceSlug *string
	err := row.Scan(&d.ID, &d.Body, &d.Hashtags, &sourceSlug, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if sourceSlug != nil {
		d.SourceSlug = *sourceSlug
	}
	if d.Hashtags == nil {
		d.Hashtags = []string{}
	}
	return &d, nil
}

// Create inserts a new draft. SourceSlug is stored as NULL when the draft
// was not prefilled from a published post.
func (r *DraftRepository) Create(ctx context.Context, draft *types.LinkedInDraft) error {
	var sourceSlug *string
	if draft.SourceSlug != "" {
		sourceSlug = &draft.SourceSlug
	}
	hashtags := draft.Hashtags
	if hashtags == nil {
		hashtags = []string{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO linkedin_drafts (id, body, hashtags, source_slug, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		draft.ID,
		draft.Body,
		hashtags,
		sourceSlug,
		draft.CreatedAt,
		draft.UpdatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create draft", err)
	}
	return nil
}

// GetByID retrieves a draft by its ID.
// Returns ErrNotFoundDraft if no draft exists.
func (r *DraftRepository) GetByID(ctx context.Context, id string) (*types.LinkedInDraft, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+draftColumns+` FROM linkedin_drafts WHERE id = $1`,
		id,
	)
	d, err := scanDraft(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundDraft, "draft not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve draft", err)
	}
	return d, nil
}

// List returns all drafts, most recently updated first.
func (r *DraftRepository) List(ctx context.Context) ([]*types.LinkedInDraft, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+draftColumns+` FROM linkedin_drafts ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list drafts", err)
	}
	defer rows.Close()

	var drafts []*types.LinkedInDraft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan draft", err)
		}
		drafts = append(drafts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list drafts", err)
	}
	return drafts, nil
}

// Update rewrites a draft's body and hashtags.
// Returns ErrNotFoundDraft if the ID does not exist.
func (r *DraftRepository) Update(ctx context.Context, draft *types.LinkedInDraft) error {
	hashtags := draft.Hashtags
	if hashtags == nil {
		hashtags = []string{}
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE linkedin_drafts SET body = $2, hashtags = $3, updated_at = $4
		 WHERE id = $1`,
		draft.ID,
		draft.Body,
		hashtags,
		draft.UpdatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update draft", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundDraft, "draft not found", nil)
	}
	return nil
}

// Delete removes a draft.
// Returns ErrNotFoundDraft if the ID does not exist.
func (r *DraftRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM linkedin_drafts WHERE id = $1`, id)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete draft", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundDraft, "draft not found", nil)
	}
	return nil
}
