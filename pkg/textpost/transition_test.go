package textpost

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0 = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
	t2 = t0.Add(2 * time.Hour)
	t3 = t0.Add(3 * time.Hour)
)

func fullWrite(now time.Time) WriteIntent {
	return WriteIntent{Mode: WriteModeFullDocument, Now: now}
}

func silentWrite(now time.Time) WriteIntent {
	return WriteIntent{Mode: WriteModeFullDocument, Silent: true, Now: now}
}

func partialWrite(now time.Time) WriteIntent {
	return WriteIntent{Mode: WriteModePartial, Now: now}
}

func draftPost() *Post {
	return &Post{
		ID:        uuid.New(),
		Slug:      "morning-show",
		Title:     "Morning show",
		AuthorID:  uuid.New(),
		Body:      "first draft",
		DraftedAt: t0,
		Version:   1,
	}
}

func publishedPost() *Post {
	p := draftPost()
	p.IsPublished = true
	published := t0
	p.PublishedAt = &published
	return p
}

func TestApplyWriteTransition_Create(t *testing.T) {
	t.Run("draft", func(t *testing.T) {
		post, tr := ApplyWriteTransition(nil, Post{Title: "x", Body: "y"}, fullWrite(t0))
		assert.Equal(t, TransitionDraftChange, tr)
		assert.Nil(t, post.PublishedAt)
		assert.Nil(t, post.LastEditedAt)
		assert.Zero(t, post.EditCount)
		assert.Equal(t, t0, post.DraftedAt)
	})

	t.Run("published immediately", func(t *testing.T) {
		post, tr := ApplyWriteTransition(nil, Post{Title: "x", Body: "y", IsPublished: true}, fullWrite(t0))
		assert.Equal(t, TransitionFirstPublish, tr)
		require.NotNil(t, post.PublishedAt)
		assert.Equal(t, t0, *post.PublishedAt)
		assert.Zero(t, post.EditCount)
	})

	t.Run("caller lifecycle fields ignored", func(t *testing.T) {
		forged := t3
		incoming := Post{
			Title:        "x",
			Body:         "y",
			PublishedAt:  &forged,
			LastEditedAt: &forged,
			EditCount:    42,
		}
		post, tr := ApplyWriteTransition(nil, incoming, fullWrite(t0))
		assert.Equal(t, TransitionDraftChange, tr)
		assert.Nil(t, post.PublishedAt)
		assert.Nil(t, post.LastEditedAt)
		assert.Zero(t, post.EditCount)
	})
}

func TestApplyWriteTransition_FirstPublish(t *testing.T) {
	for _, intent := range []WriteIntent{fullWrite(t1), partialWrite(t1)} {
		t.Run(string(intent.Mode), func(t *testing.T) {
			prev := draftPost()
			incoming := *prev.Clone()
			incoming.IsPublished = true
			incoming.Body = "changed while publishing"

			post, tr := ApplyWriteTransition(prev, incoming, intent)
			assert.Equal(t, TransitionFirstPublish, tr)
			require.NotNil(t, post.PublishedAt)
			assert.Equal(t, t1, *post.PublishedAt)
			// First publication never counts as an edit
			assert.Zero(t, post.EditCount)
			assert.Nil(t, post.LastEditedAt)
		})
	}
}

func TestApplyWriteTransition_TrackedEdit(t *testing.T) {
	prev := publishedPost()
	incoming := *prev.Clone()
	incoming.Body = "corrected"

	post, tr := ApplyWriteTransition(prev, incoming, fullWrite(t1))
	assert.Equal(t, TransitionTrackedEdit, tr)
	assert.Equal(t, 1, post.EditCount)
	require.NotNil(t, post.LastEditedAt)
	assert.Equal(t, t1, *post.LastEditedAt)
	assert.Equal(t, t0, *post.PublishedAt)
}

func TestApplyWriteTransition_UnchangedBodyIsNotAnEdit(t *testing.T) {
	prev := publishedPost()
	incoming := *prev.Clone()
	incoming.Title = "Retitled"

	post, tr := ApplyWriteTransition(prev, incoming, fullWrite(t1))
	assert.Equal(t, TransitionDraftChange, tr)
	assert.Zero(t, post.EditCount)
	assert.Nil(t, post.LastEditedAt)
	assert.Equal(t, "Retitled", post.Title)
}

func TestApplyWriteTransition_SilentEdit(t *testing.T) {
	prev := publishedPost()
	prev.EditCount = 3
	edited := t1
	prev.LastEditedAt = &edited

	incoming := *prev.Clone()
	incoming.Body = "typo fixed quietly"

	post, tr := ApplyWriteTransition(prev, incoming, silentWrite(t2))
	assert.Equal(t, TransitionSilentEdit, tr)
	assert.Equal(t, 3, post.EditCount)
	assert.Equal(t, t1, *post.LastEditedAt)
	assert.True(t, post.SilentEdit, "marker is persisted until the post-commit reset")
	assert.Equal(t, "typo fixed quietly", post.Body)
}

func TestApplyWriteTransition_SilentFlagDoesNotCarryOver(t *testing.T) {
	prev := publishedPost()
	prev.SilentEdit = true

	incoming := *prev.Clone()
	incoming.Body = "normal edit"

	post, tr := ApplyWriteTransition(prev, incoming, fullWrite(t1))
	assert.Equal(t, TransitionTrackedEdit, tr)
	assert.False(t, post.SilentEdit)
	assert.Equal(t, 1, post.EditCount)
}

func TestApplyWriteTransition_PartialNeverTracksEdits(t *testing.T) {
	prev := publishedPost()
	incoming := *prev.Clone()
	incoming.Body = "bulk rewrite"

	post, tr := ApplyWriteTransition(prev, incoming, partialWrite(t1))
	assert.Equal(t, TransitionUntrackedEdit, tr)
	assert.Zero(t, post.EditCount)
	assert.Nil(t, post.LastEditedAt)
	assert.Equal(t, "bulk rewrite", post.Body)
}

func TestApplyWriteTransition_DraftEditsAreNotTracked(t *testing.T) {
	prev := draftPost()
	incoming := *prev.Clone()
	incoming.Body = "second draft"

	post, tr := ApplyWriteTransition(prev, incoming, fullWrite(t1))
	assert.Equal(t, TransitionDraftChange, tr)
	assert.Zero(t, post.EditCount)
	assert.Nil(t, post.PublishedAt)
}

func TestApplyWriteTransition_PublishedAtIsStable(t *testing.T) {
	prev := publishedPost()

	// Unpublish, edit, republish: PublishedAt never moves
	steps := []struct {
		published bool
		body      string
		intent    WriteIntent
	}{
		{published: false, body: "hidden", intent: fullWrite(t1)},
		{published: false, body: "hidden again", intent: partialWrite(t2)},
		{published: true, body: "back", intent: fullWrite(t3)},
		{published: true, body: "quiet", intent: silentWrite(t3.Add(time.Minute))},
	}

	current := prev
	for _, step := range steps {
		incoming := *current.Clone()
		incoming.IsPublished = step.published
		incoming.Body = step.body
		next, tr := ApplyWriteTransition(current, incoming, step.intent)
		assert.NotEqual(t, TransitionFirstPublish, tr)
		require.NotNil(t, next.PublishedAt)
		assert.Equal(t, t0, *next.PublishedAt)
		current = &next
	}
}

func TestApplyWriteTransition_ImmutableFieldsCarried(t *testing.T) {
	prev := publishedPost()
	prev.EditCount = 2

	incoming := *prev.Clone()
	incoming.ID = uuid.New()
	incoming.AuthorID = uuid.New()
	incoming.Slug = "hijacked"
	incoming.DraftedAt = t3
	incoming.EditCount = 99
	incoming.Version = 77

	post, _ := ApplyWriteTransition(prev, incoming, fullWrite(t1))
	assert.Equal(t, prev.ID, post.ID)
	assert.Equal(t, prev.AuthorID, post.AuthorID)
	assert.Equal(t, prev.Slug, post.Slug)
	assert.Equal(t, prev.DraftedAt, post.DraftedAt)
	assert.Equal(t, 2, post.EditCount)
	assert.Equal(t, prev.Version, post.Version)
	assert.Equal(t, t1, post.UpdatedAt)
}

func TestApplyWriteTransition_NTrackedEdits(t *testing.T) {
	current := publishedPost()
	var last time.Time
	for i := 1; i <= 5; i++ {
		last = t0.Add(time.Duration(i) * time.Minute)
		incoming := *current.Clone()
		incoming.Body = current.Body + "!"
		next, tr := ApplyWriteTransition(current, incoming, fullWrite(last))
		require.Equal(t, TransitionTrackedEdit, tr)
		current = &next
	}
	assert.Equal(t, 5, current.EditCount)
	assert.Equal(t, last, *current.LastEditedAt)
}

func TestApplyWriteTransition_DoesNotAliasPrevious(t *testing.T) {
	prev := publishedPost()
	edited := t1
	prev.LastEditedAt = &edited

	incoming := *prev.Clone()
	post, _ := ApplyWriteTransition(prev, incoming, fullWrite(t2))
	*post.PublishedAt = t3
	*post.LastEditedAt = t3

	assert.Equal(t, t0, *prev.PublishedAt)
	assert.Equal(t, t1, *prev.LastEditedAt)
}
