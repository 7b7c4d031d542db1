package serviceinterfaces

import (
	"context"

	"betaportal/internal/models"
	"betaportal/internal/services"
)

// TriageService defines admin status workflows
type TriageService interface {
	// BulkUpdateStatus always returns a result; the error aggregates per-item failures
	BulkUpdateStatus(ctx context.Context, items []models.ReportRef, status string) (*models.BulkStatusResult, error)

	// UpdateTester applies an admin patch and sends the approval email on approval
	UpdateTester(ctx context.Context, id int, patch models.TesterAdminPatch) (*models.Tester, error)
}

// AnalyticsService defines the admin analytics aggregates
type AnalyticsService interface {
	Compute(ctx context.Context) (*services.Analytics, error)
}

// SeedService defines the idempotent sample-data bootstrap
type SeedService interface {
	Run(ctx context.Context, callerExternalID string) (*services.SeedResult, error)
}

// AdminPolicy answers allow-list membership
type AdminPolicy interface {
	IsAdmin(externalID string) bool
}
