package serviceinterfaces

import (
	"context"
	"io"

	"betaportal/internal/models"
)

// BugService defines bug report operations
type BugService interface {
	List(ctx context.Context, filter models.ListBugsFilter) (*models.BugList, error)
	Create(ctx context.Context, tester *models.Tester, req models.CreateBugRequest) (*models.BugReport, error)
	Get(ctx context.Context, id int) (*models.BugReportDetail, error)
	UpdateContent(ctx context.Context, id int, principal *models.Principal, patch models.BugContentPatch) (*models.BugReport, error)
	AdminUpdate(ctx context.Context, id int, patch models.BugAdminPatch) (*models.BugReport, error)
}

// FeatureService defines feature request operations
type FeatureService interface {
	List(ctx context.Context, filter models.ListFeaturesFilter) (*models.FeatureList, error)
	Create(ctx context.Context, tester *models.Tester, req models.CreateFeatureRequest) (*models.FeatureRequest, error)

	// Get returns the feature with hasVoted computed for viewerTesterID
	Get(ctx context.Context, id, viewerTesterID int) (*models.FeatureRequestDetail, error)
	UpdateContent(ctx context.Context, id int, principal *models.Principal, patch models.FeatureContentPatch) (*models.FeatureRequest, error)
	AdminUpdate(ctx context.Context, id int, patch models.FeatureAdminPatch) (*models.FeatureRequest, error)
}

// VoteService defines the feature vote toggle
type VoteService interface {
	Toggle(ctx context.Context, testerID, featureID int) (*models.VoteResult, error)
}

// CommentService defines comment threads on reports
type CommentService interface {
	Post(ctx context.Context, author *models.Principal, target models.ReportRef, content string, asAdmin bool) (*models.Comment, error)
	List(ctx context.Context, target models.ReportRef) ([]models.Comment, error)
}

// AttachmentService defines screenshot and document uploads
type AttachmentService interface {
	// MaxBytes is the largest accepted upload
	MaxBytes() int64

	Upload(ctx context.Context, fileName, declaredType string, size int64, r io.Reader) (*models.UploadedFile, error)
}

// TrackerService defines the combined bug and feature tracker
type TrackerService interface {
	Query(ctx context.Context, q models.TrackerQuery) (*models.TrackerResult, error)
}
