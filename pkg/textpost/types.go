package textpost

import (
	"time"

	"github.com/google/uuid"
)

// LengthClass buckets a post body by length for display.
type LengthClass string

// Length class constants (typed).
const (
	LengthClassXS LengthClass = "xs"
	LengthClassS  LengthClass = "s"
	LengthClassM  LengthClass = "m"
	LengthClassL  LengthClass = "l"
)

// WriteMode identifies which write entry point produced a write.
type WriteMode string

// Write mode constants (typed).
const (
	WriteModeFullDocument WriteMode = "full_document"
	WriteModePartial      WriteMode = "partial"
)

// Transition classifies what a write did to the lifecycle fields.
type Transition string

// Transition constants (typed).
const (
	TransitionFirstPublish  Transition = "first_publish"
	TransitionTrackedEdit   Transition = "tracked_edit"
	TransitionSilentEdit    Transition = "silent_edit"
	TransitionUntrackedEdit Transition = "untracked_edit"
	TransitionDraftChange   Transition = "draft_change"
)

// Audit event names.
const (
	AuditEventSilentEdit = "silent-edit"
)

// Post is a single draftable/publishable text post.
//
// ID, Slug, AuthorID and DraftedAt are fixed at creation. PublishedAt,
// LastEditedAt and EditCount are owned by ApplyWriteTransition and are
// never taken from caller input. Version is the optimistic concurrency
// token; every successful write increments it.
type Post struct {
	ID           uuid.UUID  `json:"id"`
	Slug         string     `json:"slug"`
	Title        string     `json:"title"`
	AuthorID     uuid.UUID  `json:"author_id"`
	Body         string     `json:"body"`
	IsPublished  bool       `json:"is_published"`
	DraftedAt    time.Time  `json:"drafted_at"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	LastEditedAt *time.Time `json:"last_edited_at,omitempty"`
	EditCount    int        `json:"edit_count"`
	SilentEdit   bool       `json:"silent_edit"`
	ImageKey     string     `json:"image_key,omitempty"`
	Version      int64      `json:"version"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Clone returns a deep copy of the post.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	c := *p
	c.PublishedAt = copyTime(p.PublishedAt)
	c.LastEditedAt = copyTime(p.LastEditedAt)
	return &c
}

// PostView is the read model handed to listing and page surfaces.
// LengthClass and WasEdited are computed when the view is built. SilentEdit
// is always false in a view.
type PostView struct {
	Post
	LengthClass LengthClass `json:"length_class"`
	WasEdited   bool        `json:"was_edited"`
}

// NewPostView builds a read model for the post.
func NewPostView(p *Post) *PostView {
	c := p.Clone()
	c.SilentEdit = false
	return &PostView{
		Post:        *c,
		LengthClass: c.LengthClass(),
		WasEdited:   c.WasEdited(),
	}
}

// AuditRecord is emitted to the AuditSink after a silent edit commits.
type AuditRecord struct {
	Event      string    `json:"event"`
	Timestamp  time.Time `json:"timestamp"`
	PostID     uuid.UUID `json:"post_id"`
	Mode       WriteMode `json:"mode,omitempty"`
	Reconciled bool      `json:"reconciled,omitempty"`
}

// WriteIntent carries the write-time instructions for ApplyWriteTransition.
// Silent is a one-shot instruction; it does not survive the write.
type WriteIntent struct {
	Mode   WriteMode
	Silent bool
	Now    time.Time
}

// PostListFilters defines filtering options for listing posts.
type PostListFilters struct {
	AuthorID      *uuid.UUID
	PublishedOnly bool
	DraftsOnly    bool
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
