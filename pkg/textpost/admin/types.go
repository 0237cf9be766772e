package admin

import (
	"time"

	"github.com/google/uuid"
)

// PostStatistics provides aggregated statistics about posts
type PostStatistics struct {
	TotalCount         int64            `json:"total_count"`
	PublishedCount     int64            `json:"published_count"`
	DraftCount         int64            `json:"draft_count"`
	EditedCount        int64            `json:"edited_count"`
	TotalEdits         int64            `json:"total_edits"`
	WithImageCount     int64            `json:"with_image_count"`
	PendingSilentEdits *int64           `json:"pending_silent_edits,omitempty"`
	ByLengthClass      map[string]int64 `json:"by_length_class,omitempty"`
	ByAuthor           map[string]int64 `json:"by_author,omitempty"`
	OldestDraft        *time.Time       `json:"oldest_draft,omitempty"`
	NewestPublished    *time.Time       `json:"newest_published,omitempty"`
}

// PostFilters defines filtering options for admin operations
type PostFilters struct {
	AuthorID      *uuid.UUID `json:"author_id,omitempty"`
	PublishedOnly bool       `json:"published_only,omitempty"`
	DraftsOnly    bool       `json:"drafts_only,omitempty"`

	// Time range filters, applied to DraftedAt
	DraftedAfter  *time.Time `json:"drafted_after,omitempty"`
	DraftedBefore *time.Time `json:"drafted_before,omitempty"`
}

// StatisticsOptions defines what statistics to compute
type StatisticsOptions struct {
	IncludeLengthBreakdown bool `json:"include_length_breakdown"`
	IncludeAuthorBreakdown bool `json:"include_author_breakdown"`
	IncludeTimeRange       bool `json:"include_time_range"`
	IncludePending         bool `json:"include_pending"`
}

// DefaultStatisticsOptions returns statistics options with all breakdowns enabled
func DefaultStatisticsOptions() StatisticsOptions {
	return StatisticsOptions{
		IncludeLengthBreakdown: true,
		IncludeAuthorBreakdown: true,
		IncludeTimeRange:       true,
		IncludePending:         true,
	}
}
