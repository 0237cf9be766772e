package admin

import (
	"time"

	"github.com/google/uuid"
)

// CountRequest contains parameters for counting posts
type CountRequest struct {
	Filters PostFilters `json:"filters"`
}

// CountResponse contains the count result
type CountResponse struct {
	Count int64 `json:"count"`
}

// StatisticsRequest contains parameters for retrieving post statistics
type StatisticsRequest struct {
	Filters PostFilters       `json:"filters"`
	Options StatisticsOptions `json:"options"`
}

// StatisticsResponse contains the statistics result
type StatisticsResponse struct {
	Statistics PostStatistics `json:"statistics"`
	ComputedAt time.Time      `json:"computed_at"`
}

// FilterOption provides functional options for building filters
type FilterOption func(*PostFilters)

// WithAuthorID filters by author
func WithAuthorID(authorID uuid.UUID) FilterOption {
	return func(f *PostFilters) {
		f.AuthorID = &authorID
	}
}

// WithPublishedOnly keeps published posts only
func WithPublishedOnly() FilterOption {
	return func(f *PostFilters) {
		f.PublishedOnly = true
		f.DraftsOnly = false
	}
}

// WithDraftsOnly keeps unpublished posts only
func WithDraftsOnly() FilterOption {
	return func(f *PostFilters) {
		f.DraftsOnly = true
		f.PublishedOnly = false
	}
}

// WithDraftedAfter filters posts drafted after the given time
func WithDraftedAfter(t time.Time) FilterOption {
	return func(f *PostFilters) {
		f.DraftedAfter = &t
	}
}

// WithDraftedBefore filters posts drafted before the given time
func WithDraftedBefore(t time.Time) FilterOption {
	return func(f *PostFilters) {
		f.DraftedBefore = &t
	}
}

// NewFilters builds filters from options
func NewFilters(opts ...FilterOption) PostFilters {
	var f PostFilters
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// NewStatisticsRequest creates a statistics request with every breakdown enabled
func NewStatisticsRequest(opts ...FilterOption) StatisticsRequest {
	return StatisticsRequest{
		Filters: NewFilters(opts...),
		Options: DefaultStatisticsOptions(),
	}
}
