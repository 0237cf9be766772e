package admin

import (
	"context"
	"time"

	"github.com/wusb-radio/textpost/pkg/textpost"
)

// adminService implements the AdminService interface
type adminService struct {
	repo textpost.Repository
}

// Ensure adminService implements AdminService
var _ AdminService = (*adminService)(nil)

// CountPosts returns the count of posts matching the given filters
func (s *adminService) CountPosts(ctx context.Context, req CountRequest) (*CountResponse, error) {
	posts, err := s.listPosts(ctx, req.Filters)
	if err != nil {
		return nil, err
	}
	return &CountResponse{Count: int64(len(posts))}, nil
}

// GetStatistics returns aggregated statistics about posts
func (s *adminService) GetStatistics(ctx context.Context, req StatisticsRequest) (*StatisticsResponse, error) {
	posts, err := s.listPosts(ctx, req.Filters)
	if err != nil {
		return nil, err
	}

	stats := PostStatistics{TotalCount: int64(len(posts))}
	if req.Options.IncludeLengthBreakdown {
		stats.ByLengthClass = map[string]int64{}
	}
	if req.Options.IncludeAuthorBreakdown {
		stats.ByAuthor = map[string]int64{}
	}

	for _, p := range posts {
		if p.IsPublished {
			stats.PublishedCount++
		} else {
			stats.DraftCount++
		}
		if p.WasEdited() {
			stats.EditedCount++
		}
		stats.TotalEdits += int64(p.EditCount)
		if p.ImageKey != "" {
			stats.WithImageCount++
		}

		if stats.ByLengthClass != nil {
			stats.ByLengthClass[string(p.LengthClass())]++
		}
		if stats.ByAuthor != nil {
			stats.ByAuthor[p.AuthorID.String()]++
		}

		if req.Options.IncludeTimeRange {
			if !p.IsPublished && (stats.OldestDraft == nil || p.DraftedAt.Before(*stats.OldestDraft)) {
				t := p.DraftedAt
				stats.OldestDraft = &t
			}
			if p.PublishedAt != nil && (stats.NewestPublished == nil || p.PublishedAt.After(*stats.NewestPublished)) {
				t := *p.PublishedAt
				stats.NewestPublished = &t
			}
		}
	}

	if req.Options.IncludePending {
		pending, err := s.repo.ListPendingSilentEdits(ctx)
		if err != nil {
			return nil, err
		}
		n := int64(len(pending))
		stats.PendingSilentEdits = &n
	}

	return &StatisticsResponse{
		Statistics: stats,
		ComputedAt: time.Now().UTC(),
	}, nil
}

// ListPendingSilentEdits returns posts whose silent edit flag is still set
func (s *adminService) ListPendingSilentEdits(ctx context.Context) ([]*textpost.Post, error) {
	return s.repo.ListPendingSilentEdits(ctx)
}

// listPosts applies the repository filters, then the time range.
func (s *adminService) listPosts(ctx context.Context, f PostFilters) ([]*textpost.Post, error) {
	posts, err := s.repo.ListPosts(ctx, textpost.PostListFilters{
		AuthorID:      f.AuthorID,
		PublishedOnly: f.PublishedOnly,
		DraftsOnly:    f.DraftsOnly,
	})
	if err != nil {
		return nil, err
	}

	if f.DraftedAfter == nil && f.DraftedBefore == nil {
		return posts, nil
	}

	filtered := posts[:0]
	for _, p := range posts {
		if f.DraftedAfter != nil && !p.DraftedAt.After(*f.DraftedAfter) {
			continue
		}
		if f.DraftedBefore != nil && !p.DraftedAt.Before(*f.DraftedBefore) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered, nil
}
