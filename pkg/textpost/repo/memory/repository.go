package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/wusb-radio/textpost/pkg/textpost"
)

// Repository implements textpost.Repository using in-memory storage
type Repository struct {
	mu     sync.RWMutex
	posts  map[uuid.UUID]*textpost.Post
	bySlug map[string]uuid.UUID
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		posts:  make(map[uuid.UUID]*textpost.Post),
		bySlug: make(map[string]uuid.UUID),
	}
}

var _ textpost.Repository = (*Repository)(nil)

func (r *Repository) CreatePost(ctx context.Context, post *textpost.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[post.ID]; exists {
		return fmt.Errorf("post %s already exists", post.ID)
	}
	if _, taken := r.bySlug[post.Slug]; taken {
		return textpost.ErrSlugTaken
	}

	// Store a copy to avoid external modifications
	r.posts[post.ID] = post.Clone()
	r.bySlug[post.Slug] = post.ID
	return nil
}

func (r *Repository) GetPost(ctx context.Context, id uuid.UUID) (*textpost.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, exists := r.posts[id]
	if !exists {
		return nil, textpost.ErrPostNotFound
	}
	return post.Clone(), nil
}

func (r *Repository) GetPostBySlug(ctx context.Context, slug string) (*textpost.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.bySlug[slug]
	if !exists {
		return nil, textpost.ErrPostNotFound
	}
	return r.posts[id].Clone(), nil
}

func (r *Repository) UpdatePost(ctx context.Context, post *textpost.Post, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.posts[post.ID]
	if !exists {
		return textpost.ErrPostNotFound
	}
	if stored.Version != expectedVersion {
		return textpost.ErrConflict
	}

	post.Version = expectedVersion + 1
	updated := post.Clone()
	// The slug is fixed at creation.
	updated.Slug = stored.Slug
	r.posts[post.ID] = updated
	return nil
}

func (r *Repository) ClearSilentEdit(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, exists := r.posts[id]
	if !exists {
		return textpost.ErrPostNotFound
	}
	post.SilentEdit = false
	return nil
}

func (r *Repository) ListPosts(ctx context.Context, filters textpost.PostListFilters) ([]*textpost.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*textpost.Post
	for _, post := range r.posts {
		if filters.AuthorID != nil && post.AuthorID != *filters.AuthorID {
			continue
		}
		if filters.PublishedOnly && !post.IsPublished {
			continue
		}
		if filters.DraftsOnly && post.IsPublished {
			continue
		}
		result = append(result, post.Clone())
	}

	sortPosts(result)
	return result, nil
}

func (r *Repository) ListPendingSilentEdits(ctx context.Context) ([]*textpost.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*textpost.Post
	for _, post := range r.posts {
		if post.SilentEdit {
			result = append(result, post.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.Before(result[j].UpdatedAt)
	})
	return result, nil
}

// sortPosts orders by PublishedAt descending with never-published posts last,
// newest draft first.
func sortPosts(posts []*textpost.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		switch {
		case a.PublishedAt != nil && b.PublishedAt != nil:
			if !a.PublishedAt.Equal(*b.PublishedAt) {
				return a.PublishedAt.After(*b.PublishedAt)
			}
		case a.PublishedAt != nil:
			return true
		case b.PublishedAt != nil:
			return false
		}
		if !a.DraftedAt.Equal(b.DraftedAt) {
			return a.DraftedAt.After(b.DraftedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}
