package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wusb-radio/textpost/pkg/textpost"
	"github.com/wusb-radio/textpost/pkg/textpost/repo/memory"
)

func newPost(slug string, drafted time.Time, published *time.Time) *textpost.Post {
	return &textpost.Post{
		ID:          uuid.New(),
		Slug:        slug,
		Title:       slug,
		AuthorID:    uuid.New(),
		Body:        "body of " + slug,
		IsPublished: published != nil,
		DraftedAt:   drafted,
		PublishedAt: published,
		Version:     1,
		UpdatedAt:   drafted,
	}
}

func TestRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	post := newPost("first", time.Now().UTC(), nil)
	require.NoError(t, repo.CreatePost(ctx, post))

	got, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.Title, got.Title)

	bySlug, err := repo.GetPostBySlug(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, post.ID, bySlug.ID)

	// Returned values are copies
	got.Title = "mutated"
	again, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", again.Title)
}

func TestRepository_SlugTaken(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	require.NoError(t, repo.CreatePost(ctx, newPost("dup", time.Now(), nil)))
	err := repo.CreatePost(ctx, newPost("dup", time.Now(), nil))
	assert.ErrorIs(t, err, textpost.ErrSlugTaken)
}

func TestRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	_, err := repo.GetPost(ctx, uuid.New())
	assert.ErrorIs(t, err, textpost.ErrPostNotFound)

	_, err = repo.GetPostBySlug(ctx, "missing")
	assert.ErrorIs(t, err, textpost.ErrPostNotFound)

	err = repo.UpdatePost(ctx, newPost("missing", time.Now(), nil), 1)
	assert.ErrorIs(t, err, textpost.ErrPostNotFound)

	assert.ErrorIs(t, repo.ClearSilentEdit(ctx, uuid.New()), textpost.ErrPostNotFound)
}

func TestRepository_UpdateVersionCheck(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	post := newPost("versioned", time.Now(), nil)
	require.NoError(t, repo.CreatePost(ctx, post))

	first := post.Clone()
	first.Body = "first writer"
	require.NoError(t, repo.UpdatePost(ctx, first, 1))
	assert.Equal(t, int64(2), first.Version)

	second := post.Clone()
	second.Body = "second writer"
	err := repo.UpdatePost(ctx, second, 1)
	assert.ErrorIs(t, err, textpost.ErrConflict)

	stored, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "first writer", stored.Body)
	assert.Equal(t, int64(2), stored.Version)
}

func TestRepository_ClearSilentEdit(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	post := newPost("silent", time.Now(), nil)
	require.NoError(t, repo.CreatePost(ctx, post))

	marked := post.Clone()
	marked.SilentEdit = true
	require.NoError(t, repo.UpdatePost(ctx, marked, 1))

	pending, err := repo.ListPendingSilentEdits(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, post.ID, pending[0].ID)

	require.NoError(t, repo.ClearSilentEdit(ctx, post.ID))

	stored, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.False(t, stored.SilentEdit)
	assert.Equal(t, int64(2), stored.Version, "clearing the flag does not bump the version")

	pending, err = repo.ListPendingSilentEdits(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRepository_ListPostsOrderingAndFilters(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	older := base.Add(time.Hour)
	newer := base.Add(2 * time.Hour)

	oldPublished := newPost("old-published", base, &older)
	newPublished := newPost("new-published", base, &newer)
	draftA := newPost("draft-a", base.Add(time.Minute), nil)
	draftB := newPost("draft-b", base.Add(2*time.Minute), nil)
	draftB.AuthorID = oldPublished.AuthorID

	for _, p := range []*textpost.Post{oldPublished, draftA, newPublished, draftB} {
		require.NoError(t, repo.CreatePost(ctx, p))
	}

	all, err := repo.ListPosts(ctx, textpost.PostListFilters{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, []string{"new-published", "old-published", "draft-b", "draft-a"},
		[]string{all[0].Slug, all[1].Slug, all[2].Slug, all[3].Slug})

	published, err := repo.ListPosts(ctx, textpost.PostListFilters{PublishedOnly: true})
	require.NoError(t, err)
	assert.Len(t, published, 2)

	drafts, err := repo.ListPosts(ctx, textpost.PostListFilters{DraftsOnly: true})
	require.NoError(t, err)
	assert.Len(t, drafts, 2)

	author := oldPublished.AuthorID
	byAuthor, err := repo.ListPosts(ctx, textpost.PostListFilters{AuthorID: &author})
	require.NoError(t, err)
	require.Len(t, byAuthor, 2)
	assert.Equal(t, "old-published", byAuthor[0].Slug)
	assert.Equal(t, "draft-b", byAuthor[1].Slug)
}
