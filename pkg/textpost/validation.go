package textpost

import (
	"strings"

	"github.com/google/uuid"
)

const maxTitleLength = 200

func validateTitle(v *ValidationError, title string) {
	switch {
	case strings.TrimSpace(title) == "":
		v.add("title", "is required")
	case len(title) > maxTitleLength:
		v.add("title", "must be at most 200 characters")
	}
}

func validateBody(v *ValidationError, body string) {
	if strings.TrimSpace(body) == "" {
		v.add("body", "is required")
	}
}

// validateSilent rejects a silent edit from a caller without privilege.
func validateSilent(v *ValidationError, silent, privileged bool) {
	if silent && !privileged {
		v.add("silent_edit", "requires a privileged editor")
	}
}

func validateCreate(req CreatePostRequest) error {
	v := &ValidationError{}
	validateTitle(v, req.Title)
	if req.AuthorID == uuid.Nil {
		v.add("author_id", "is required")
	}
	validateBody(v, req.Body)
	return v.orNil()
}

func validateSave(req SavePostRequest) error {
	v := &ValidationError{}
	if req.ID == uuid.Nil {
		v.add("id", "is required")
	}
	if req.ExpectedVersion <= 0 {
		v.add("version", "must be the version that was read")
	}
	validateTitle(v, req.Title)
	validateBody(v, req.Body)
	validateSilent(v, req.SilentEdit, req.Privileged)
	return v.orNil()
}

func validateBulk(req BulkUpdateRequest) error {
	v := &ValidationError{}
	if len(req.IDs) == 0 {
		v.add("ids", "at least one post id is required")
	}
	for _, id := range req.IDs {
		if id == uuid.Nil {
			v.add("ids", "must not contain the nil id")
			break
		}
	}
	p := req.Patch
	if p.Title == nil && p.Body == nil && p.IsPublished == nil {
		v.add("patch", "must change at least one field")
	}
	if p.Title != nil {
		validateTitle(v, *p.Title)
	}
	if p.Body != nil {
		validateBody(v, *p.Body)
	}
	validateSilent(v, req.SilentEdit, req.Privileged)
	return v.orNil()
}

// applyPatch copies the set fields of the patch onto the post.
func applyPatch(p *Post, patch PostPatch) {
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Body != nil {
		p.Body = *patch.Body
	}
	if patch.IsPublished != nil {
		p.IsPublished = *patch.IsPublished
	}
}
