package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"labsite/internal/types"
)

// publicPostMockRows implements pgx.Rows for published post list queries.
type publicPostMockRows struct {
	data   []types.PublicPost
	idx    int
	closed bool
	errVal error
}

func newPublicPostMockRows(data []types.PublicPost) *publicPostMockRows {
	return &publicPostMockRows{data: data, idx: -1}
}

func (r *publicPostMockRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}

func (r *publicPostMockRows) Scan(dest ...any) error {
	row := r.data[r.idx]
	*dest[0].(*string) = row.Slug
	*dest[1].(*string) = row.Title
	*dest[2].(*string) = row.Summary
	*dest[3].(*string) = row.BodyMD
	*dest[4].(*[]string) = row.Tags
	*dest[5].(*time.Time) = row.PublishedAt
	*dest[6].(*time.Time) = row.UpdatedAt
	return nil
}

func (r *publicPostMockRows) Close()                                       { r.closed = true }
func (r *publicPostMockRows) Err() error                                   { return r.errVal }
func (r *publicPostMockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *publicPostMockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *publicPostMockRows) RawValues() [][]byte                          { return nil }
func (r *publicPostMockRows) Values() ([]any, error)                       { return nil, nil }
func (r *publicPostMockRows) Conn() *pgx.Conn                              { return nil }

// --- Create Tests ---

func TestPostRepository_Create_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPostRepository(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := repo.Create(ctx, &types.Post{
		ID:        "post_1",
		Slug:      "on-writing",
		Title:     "On Writing",
		BodyMD:    "Some thoughts.",
		Status:    types.PostStatusDraft,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestPostRepository_Create_SlugConflict(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPostRepository(db)
	ctx := context.Background()

	pgErr := &pgconn.PgError{Code: "23505"}
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, pgErr)

	err := repo.Create(ctx, &types.Post{ID: "post_2", Slug: "on-writing"})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeConflictSlug, appErr.Code)
}

// --- GetByID Tests ---

func TestPostRepository_GetByID_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPostRepository(db)
	ctx := context.Background()

	row := &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*string) = "post_1"
		*dest[1].(*string) = "on-writing"
		*dest[2].(*string) = "On Writing"
		*dest[3].(*string) = "Some thoughts."
		*dest[4].(*types.PostStatus) = types.PostStatusDraft
		*dest[5].(*time.Time) = time.Now()
		*dest[6].(*time.Time) = time.Now()
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"post_1"}).Return(row)

	post, err := repo.GetByID(ctx, "post_1")
	require.NoError(t, err)
	assert.Equal(t, "on-writing", post.Slug)
	assert.Equal(t, types.PostStatusDraft, post.Status)
}

func TestPostRepository_GetByID_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPostRepository(db)
	ctx := context.Background()

	row := &mockRow{scanErr: pgx.ErrNoRows}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"post_missing"}).Return(row)

	_, err := repo.GetByID(ctx, "post_missing")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundPost, appErr.Code)
}

// --- Update Tests ---

func TestPostRepository_Update_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPostRepository(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := repo.Update(ctx, &types.Post{ID: "post_missing", Slug: "x"})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundPost, appErr.Code)
}

func TestPostRepository_Update_SlugConflict(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPostRepository(db)
	ctx := context.Background()

	pgErr := &pgconn.PgError{Code: "23505"}
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, pgErr)

	err := repo.Update(ctx, &types.Post{ID: "post_1", Slug: "taken"})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeConflictSlug, appErr.Code)
}

// --- Delete Tests ---

func TestPostRepository_Delete_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPostRepository(db)
	ctx := context.Background()

	// First Exec removes the public copy, second removes the working post.
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("DELETE 0"), nil).Once()
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("DELETE 1"), nil).Once()

	err := repo.Delete(ctx, "post_1")
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestPostRepository_Delete_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPostRepository(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("DELETE 0"), nil)

	err := repo.Delete(ctx, "post_missing")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundPost, appErr.Code)
}

// --- Publish Tests ---

func TestPostRepository_Publish_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPostRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	post := &types.Post{ID: "post_1", Slug: "on-writing", Title: "On Writing", BodyMD: "Body."}

	db.On("Exec", ctx, mock.AnythingOfType("string"),
		[]any{"post_1", types.PostStatusPublished, now}).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil).Once()
	db.On("Exec", ctx, mock.AnythingOfType("string"),
		[]any{"on-writing", "On Writing", "Body.", "Body.", []string{"writing"}, now}).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil).Once()

	err := repo.Publish(ctx, post, "Body.", []string{"writing"}, now)
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestPostRepository_Publish_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPostRepository(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := repo.Publish(ctx, &types.Post{ID: "post_missing"}, "", nil, time.Now())
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundPost, appErr.Code)
}

// --- Unpublish Tests ---

func TestPostRepository_Unpublish_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPostRepository(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil).Once()
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("DELETE 1"), nil).Once()

	err := repo.Unpublish(ctx, "post_1")
	require.NoError(t, err)
	db.AssertExpectations(t)
}

// --- Published Read Tests ---

func TestPostRepository_ListPublished_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPostRepository(db)
	ctx := context.Background()

	rows := newPublicPostMockRows([]types.PublicPost{
		{Slug: "newest", Title: "Newest", Tags: []string{"go"}},
		{Slug: "older", Title: "Older", Tags: []string{}},
	})
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	posts, err := repo.ListPublished(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "newest", posts[0].Slug)
	assert.Equal(t, []string{"go"}, posts[0].Tags)
	assert.True(t, rows.closed)
}

func TestPostRepository_ListPublished_NilTagsNormalized(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPostRepository(db)
	ctx := context.Background()

	rows := newPublicPostMockRows([]types.PublicPost{{Slug: "untagged"}})
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	posts, err := repo.ListPublished(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.NotNil(t, posts[0].Tags)
	assert.Empty(t, posts[0].Tags)
}

func TestPostRepository_GetPublishedBySlug_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPostRepository(db)
	ctx := context.Background()

	row := &mockRow{scanErr: pgx.ErrNoRows}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"missing"}).Return(row)

	_, err := repo.GetPublishedBySlug(ctx, "missing")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundPost, appErr.Code)
}
