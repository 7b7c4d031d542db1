package serviceinterfaces

import (
	"context"

	"betaportal/internal/models"
	"betaportal/internal/services"
)

// AnnouncementService defines the announcement feed and its admin operations
type AnnouncementService interface {
	// List returns the feed pinned first, then newest; limit <= 0 returns everything
	List(ctx context.Context, limit int) ([]models.Announcement, error)
	Create(ctx context.Context, in models.AnnouncementInput) (*models.Announcement, error)
	Update(ctx context.Context, id int, patch models.AnnouncementPatch) (*models.Announcement, error)
	Delete(ctx context.Context, id int) error
}

// DashboardService defines the portal home page
type DashboardService interface {
	Load(ctx context.Context, tester *models.Tester) (*services.Dashboard, error)
}

// StatusService defines the public platform status page
type StatusService interface {
	Current() *services.PlatformStatus
}
