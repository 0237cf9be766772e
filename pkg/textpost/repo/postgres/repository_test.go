package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wusb-radio/textpost/pkg/textpost"
	"github.com/wusb-radio/textpost/pkg/textpost/repo/postgres"
)

// setupRepository connects to TEXTPOST_TEST_DATABASE_URL and migrates it.
// The test is skipped when the variable is not set.
func setupRepository(t *testing.T) *postgres.Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping postgres integration test in short mode")
	}
	url := os.Getenv("TEXTPOST_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping postgres integration test: TEXTPOST_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := postgres.Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool))
	_, err = pool.Exec(ctx, "TRUNCATE posts")
	require.NoError(t, err)

	return postgres.NewWithPool(pool)
}

func newPost(slug string) *textpost.Post {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &textpost.Post{
		ID:        uuid.New(),
		Slug:      slug,
		Title:     slug,
		AuthorID:  uuid.New(),
		Body:      "body of " + slug,
		DraftedAt: now,
		Version:   1,
		UpdatedAt: now,
	}
}

func TestPostgresRepository_CRUD(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	post := newPost("pg-first")
	require.NoError(t, repo.CreatePost(ctx, post))

	got, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.Slug, got.Slug)
	assert.True(t, post.DraftedAt.Equal(got.DraftedAt))
	assert.Nil(t, got.PublishedAt)

	bySlug, err := repo.GetPostBySlug(ctx, "pg-first")
	require.NoError(t, err)
	assert.Equal(t, post.ID, bySlug.ID)

	assert.ErrorIs(t, repo.CreatePost(ctx, newPost("pg-first")), textpost.ErrSlugTaken)

	_, err = repo.GetPost(ctx, uuid.New())
	assert.ErrorIs(t, err, textpost.ErrPostNotFound)
}

func TestPostgresRepository_UpdateVersionCheck(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	post := newPost("pg-versioned")
	require.NoError(t, repo.CreatePost(ctx, post))

	published := time.Now().UTC().Truncate(time.Microsecond)
	update := post.Clone()
	update.IsPublished = true
	update.PublishedAt = &published
	update.SilentEdit = true
	require.NoError(t, repo.UpdatePost(ctx, update, 1))
	assert.Equal(t, int64(2), update.Version)

	stale := post.Clone()
	stale.Body = "stale"
	assert.ErrorIs(t, repo.UpdatePost(ctx, stale, 1), textpost.ErrConflict)

	missing := newPost("pg-missing")
	assert.ErrorIs(t, repo.UpdatePost(ctx, missing, 1), textpost.ErrPostNotFound)

	pending, err := repo.ListPendingSilentEdits(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.ClearSilentEdit(ctx, post.ID))
	stored, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.False(t, stored.SilentEdit)
	assert.Equal(t, int64(2), stored.Version)
	require.NotNil(t, stored.PublishedAt)
	assert.True(t, published.Equal(*stored.PublishedAt))
}

func TestPostgresRepository_ListPosts(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	draft := newPost("pg-draft")
	require.NoError(t, repo.CreatePost(ctx, draft))

	live := newPost("pg-live")
	live.IsPublished = true
	at := time.Now().UTC().Truncate(time.Microsecond)
	live.PublishedAt = &at
	require.NoError(t, repo.CreatePost(ctx, live))

	all, err := repo.ListPosts(ctx, textpost.PostListFilters{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, live.ID, all[0].ID)

	drafts, err := repo.ListPosts(ctx, textpost.PostListFilters{DraftsOnly: true})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, draft.ID, drafts[0].ID)

	author := live.AuthorID
	byAuthor, err := repo.ListPosts(ctx, textpost.PostListFilters{AuthorID: &author, PublishedOnly: true})
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
}
