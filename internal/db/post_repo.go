package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"labsite/internal/types"
)

// PostRepository provides data access for working posts (the posts table,
// edited in the Lab) and their published copies (the public_posts table,
// served on the public site). Publishing a working post upserts a row into
// public_posts under the same slug; unpublishing removes it. The working
// copy is always the editable source of truth.
type PostRepository struct {
	db DBTX
}

// NewPostRepository creates a new PostRepository backed by the given
// database connection (pool or transaction).
func NewPostRepository(db DBTX) *PostRepository {
	return &PostRepository{db: db}
}

const postColumns = `id, slug, title, body_md, status, created_at, updated_at`

func scanPost(row pgx.Row) (*types.Post, error) {
	var p types.Post
	err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.BodyMD, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const publicPostColumns = `slug, title, summary, body_md, tags, published_at, updated_at`

func scanPublicPost(row pgx.Row) (*types.PublicPost, error) {
	var p types.PublicPost
	err := row.Scan(&p.Slug, &p.Title, &p.Summary, &p.BodyMD, &p.Tags, &p.PublishedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

// Create inserts a new working post.
// Returns ErrConflictSlug if a working post already exists under the slug.
func (r *PostRepository) Create(ctx context.Context, post *types.Post) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO posts (id, slug, title, body_md, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		post.ID,
		post.Slug,
		post.Title,
		post.BodyMD,
		post.Status,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.NewAppError(types.ErrCodeConflictSlug, "a post with this slug already exists", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create post", err)
	}
	return nil
}

// GetByID retrieves a working post by its ID.
// Returns ErrNotFoundPost if no post exists.
func (r *PostRepository) GetByID(ctx context.Context, id string) (*types.Post, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`,
		id,
	)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundPost, "post not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve post", err)
	}
	return p, nil
}

// List returns all working posts, most recently updated first.
func (r *PostRepository) List(ctx context.Context) ([]*types.Post, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list posts", err)
	}
	defer rows.Close()

	var posts []*types.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan post", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list posts", err)
	}
	return posts, nil
}

// Update rewrites a working post's slug, title and body.
// Returns ErrNotFoundPost if the ID does not exist and ErrConflictSlug if
// the new slug collides with another post.
func (r *PostRepository) Update(ctx context.Context, post *types.Post) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE posts SET slug = $2, title = $3, body_md = $4, updated_at = $5
		 WHERE id = $1`,
		post.ID,
		post.Slug,
		post.Title,
		post.BodyMD,
		post.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.NewAppError(types.ErrCodeConflictSlug, "a post with this slug already exists", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update post", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundPost, "post not found", nil)
	}
	return nil
}

// Delete removes a working post. The published copy, if any, is removed in
// the same call so the public site never serves an orphaned post.
// Returns ErrNotFoundPost if the ID does not exist.
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM public_posts WHERE slug IN (SELECT slug FROM posts WHERE id = $1)`,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete post", err)
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete post", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundPost, "post not found", nil)
	}
	return nil
}

// Publish marks a working post as published and upserts its public copy
// with the given derived summary and tags.
func (r *PostRepository) Publish(ctx context.Context, post *types.Post, summary string, tags []string, now time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE posts SET status = $2, updated_at = $3 WHERE id = $1`,
		post.ID,
		types.PostStatusPublished,
		now,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to publish post", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundPost, "post not found", nil)
	}

	if tags == nil {
		tags = []string{}
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO public_posts (slug, title, summary, body_md, tags, published_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 ON CONFLICT (slug) DO UPDATE SET
		   title = EXCLUDED.title,
		   summary = EXCLUDED.summary,
		   body_md = EXCLUDED.body_md,
		   tags = EXCLUDED.tags,
		   updated_at = EXCLUDED.updated_at`,
		post.Slug,
		post.Title,
		summary,
		post.BodyMD,
		tags,
		now,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to publish post", err)
	}
	return nil
}

// Unpublish removes the public copy of a working post and returns its
// status to draft. Unpublishing a post that was never published is a no-op
// on public_posts.
func (r *PostRepository) Unpublish(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE posts SET status = $2 WHERE id = $1`,
		id,
		types.PostStatusDraft,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to unpublish post", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundPost, "post not found", nil)
	}
	_, err = r.db.Exec(ctx,
		`DELETE FROM public_posts WHERE slug IN (SELECT slug FROM posts WHERE id = $1)`,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to unpublish post", err)
	}
	return nil
}

// ListPublished returns the published posts, newest first.
func (r *PostRepository) ListPublished(ctx context.Context) ([]*types.PublicPost, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+publicPostColumns+` FROM public_posts ORDER BY published_at DESC`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list published posts", err)
	}
	defer rows.Close()

	var posts []*types.PublicPost
	for rows.Next() {
		p, err := scanPublicPost(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan published post", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list published posts", err)
	}
	return posts, nil
}

// GetPublishedBySlug retrieves a single published post by slug.
// Returns ErrNotFoundPost if no published copy exists.
func (r *PostRepository) GetPublishedBySlug(ctx context.Context, slug string) (*types.PublicPost, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+publicPostColumns+` FROM public_posts WHERE slug = $1`,
		slug,
	)
	p, err := scanPublicPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundPost, "post not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve published post", err)
	}
	return p, nil
}
