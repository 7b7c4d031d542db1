// Package serviceinterfaces defines service interfaces for dependency injection and testing.
package serviceinterfaces

import (
	"context"

	"betaportal/internal/models"
	"betaportal/internal/services"
)

// TesterService defines the tester account operations used by handlers and middleware
type TesterService interface {
	// Register files a beta application, binding it to externalID when non-empty
	Register(ctx context.Context, externalID string, req models.RegisterRequest) (*models.Tester, error)

	// GetByExternalID returns the bound tester or nil when the principal has not registered
	GetByExternalID(ctx context.Context, externalID string) (*models.Tester, error)

	// RequireTester returns the bound tester only when it is approved or active
	RequireTester(ctx context.Context, externalID string) (*models.Tester, error)

	GetMe(ctx context.Context, externalID string) (*models.TesterWithCounts, error)
	UpdateMe(ctx context.Context, externalID string, patch models.ProfilePatch) (*models.Tester, error)
	MyReports(ctx context.Context, testerID int) (*models.MyReports, error)

	// TouchLastActive records activity and never fails
	TouchLastActive(ctx context.Context, testerID int)

	// List returns testers with their report counts; "" or "all" disables the status filter
	List(ctx context.Context, status string) ([]models.TesterWithCounts, error)

	// Delete removes the tester and everything it owns
	Delete(ctx context.Context, id int) (*services.TesterDeletion, error)
}
