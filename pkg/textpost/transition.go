package textpost

// ApplyWriteTransition resolves the field values to persist for a write.
//
// previous is the persisted state and is nil on creation. incoming holds the
// proposed values; its lifecycle fields are ignored. The rules are checked
// in order and at most one applies:
//
//   - first publication: the write leaves the post published and it has
//     never been published before; PublishedAt is set to intent.Now.
//   - tracked edit (full-document writes only): the body changed on a
//     published post and the write is not silent; LastEditedAt is set to
//     intent.Now and EditCount goes up by one.
//
// Partial writes never count as edits, even when they change the body.
// The returned post carries intent.Silent in SilentEdit until the caller
// clears it after commit.
func ApplyWriteTransition(previous *Post, incoming Post, intent WriteIntent) (Post, Transition) {
	resolved := incoming
	resolved.PublishedAt = nil
	resolved.LastEditedAt = nil
	resolved.EditCount = 0

	if previous != nil {
		resolved.ID = previous.ID
		resolved.Slug = previous.Slug
		resolved.AuthorID = previous.AuthorID
		resolved.DraftedAt = previous.DraftedAt
		resolved.PublishedAt = copyTime(previous.PublishedAt)
		resolved.LastEditedAt = copyTime(previous.LastEditedAt)
		resolved.EditCount = previous.EditCount
		resolved.Version = previous.Version
	} else if resolved.DraftedAt.IsZero() {
		resolved.DraftedAt = intent.Now
	}

	resolved.SilentEdit = intent.Silent
	resolved.UpdatedAt = intent.Now

	bodyChanged := previous != nil && previous.Body != incoming.Body

	switch {
	case resolved.IsPublished && resolved.PublishedAt == nil:
		now := intent.Now
		resolved.PublishedAt = &now
		return resolved, TransitionFirstPublish

	case bodyChanged && resolved.IsPublished && intent.Silent:
		return resolved, TransitionSilentEdit

	case bodyChanged && resolved.IsPublished && intent.Mode == WriteModeFullDocument:
		now := intent.Now
		resolved.LastEditedAt = &now
		resolved.EditCount++
		return resolved, TransitionTrackedEdit

	case bodyChanged && resolved.IsPublished:
		return resolved, TransitionUntrackedEdit

	default:
		return resolved, TransitionDraftChange
	}
}
