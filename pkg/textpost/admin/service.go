package admin

import (
	"context"

	"github.com/wusb-radio/textpost/pkg/textpost"
)

// AdminService defines the interface for administrative post operations.
// These operations read across all authors and are intended for station
// staff dashboards and operational tooling.
//
// IMPORTANT: Endpoints using this service should only be reachable by
// privileged editors.
type AdminService interface {
	// CountPosts returns the number of posts matching the given filters.
	CountPosts(ctx context.Context, req CountRequest) (*CountResponse, error)

	// GetStatistics returns aggregated statistics about posts.
	GetStatistics(ctx context.Context, req StatisticsRequest) (*StatisticsResponse, error)

	// ListPendingSilentEdits returns posts whose silent edit flag was not
	// reset after commit and still awaits reconciliation.
	ListPendingSilentEdits(ctx context.Context) ([]*textpost.Post, error)
}

// New creates a new AdminService instance that uses the provided repository.
func New(repo textpost.Repository) AdminService {
	return &adminService{
		repo: repo,
	}
}
