package handlers

import (
	"context"
	"io"

	"betaportal/internal/models"
	"betaportal/internal/services"

	"github.com/stretchr/testify/mock"
)

type mockTesterService struct{ mock.Mock }

func (m *mockTesterService) Register(ctx context.Context, externalID string, req models.RegisterRequest) (*models.Tester, error) {
	args := m.Called(ctx, externalID, req)
	t, _ := args.Get(0).(*models.Tester)
	return t, args.Error(1)
}

func (m *mockTesterService) GetByExternalID(ctx context.Context, externalID string) (*models.Tester, error) {
	args := m.Called(ctx, externalID)
	t, _ := args.Get(0).(*models.Tester)
	return t, args.Error(1)
}

func (m *mockTesterService) RequireTester(ctx context.Context, externalID string) (*models.Tester, error) {
	args := m.Called(ctx, externalID)
	t, _ := args.Get(0).(*models.Tester)
	return t, args.Error(1)
}

func (m *mockTesterService) GetMe(ctx context.Context, externalID string) (*models.TesterWithCounts, error) {
	args := m.Called(ctx, externalID)
	t, _ := args.Get(0).(*models.TesterWithCounts)
	return t, args.Error(1)
}

func (m *mockTesterService) UpdateMe(ctx context.Context, externalID string, patch models.ProfilePatch) (*models.Tester, error) {
	args := m.Called(ctx, externalID, patch)
	t, _ := args.Get(0).(*models.Tester)
	return t, args.Error(1)
}

func (m *mockTesterService) MyReports(ctx context.Context, testerID int) (*models.MyReports, error) {
	args := m.Called(ctx, testerID)
	r, _ := args.Get(0).(*models.MyReports)
	return r, args.Error(1)
}

func (m *mockTesterService) TouchLastActive(ctx context.Context, testerID int) {
	m.Called(ctx, testerID)
}

func (m *mockTesterService) List(ctx context.Context, status string) ([]models.TesterWithCounts, error) {
	args := m.Called(ctx, status)
	l, _ := args.Get(0).([]models.TesterWithCounts)
	return l, args.Error(1)
}

func (m *mockTesterService) Delete(ctx context.Context, id int) (*services.TesterDeletion, error) {
	args := m.Called(ctx, id)
	d, _ := args.Get(0).(*services.TesterDeletion)
	return d, args.Error(1)
}

type mockBugService struct{ mock.Mock }

func (m *mockBugService) List(ctx context.Context, filter models.ListBugsFilter) (*models.BugList, error) {
	args := m.Called(ctx, filter)
	l, _ := args.Get(0).(*models.BugList)
	return l, args.Error(1)
}

func (m *mockBugService) Create(ctx context.Context, tester *models.Tester, req models.CreateBugRequest) (*models.BugReport, error) {
	args := m.Called(ctx, tester, req)
	b, _ := args.Get(0).(*models.BugReport)
	return b, args.Error(1)
}

func (m *mockBugService) Get(ctx context.Context, id int) (*models.BugReportDetail, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*models.BugReportDetail)
	return b, args.Error(1)
}

func (m *mockBugService) UpdateContent(ctx context.Context, id int, principal *models.Principal, patch models.BugContentPatch) (*models.BugReport, error) {
	args := m.Called(ctx, id, principal, patch)
	b, _ := args.Get(0).(*models.BugReport)
	return b, args.Error(1)
}

func (m *mockBugService) AdminUpdate(ctx context.Context, id int, patch models.BugAdminPatch) (*models.BugReport, error) {
	args := m.Called(ctx, id, patch)
	b, _ := args.Get(0).(*models.BugReport)
	return b, args.Error(1)
}

type mockFeatureService struct{ mock.Mock }

func (m *mockFeatureService) List(ctx context.Context, filter models.ListFeaturesFilter) (*models.FeatureList, error) {
	args := m.Called(ctx, filter)
	l, _ := args.Get(0).(*models.FeatureList)
	return l, args.Error(1)
}

func (m *mockFeatureService) Create(ctx context.Context, tester *models.Tester, req models.CreateFeatureRequest) (*models.FeatureRequest, error) {
	args := m.Called(ctx, tester, req)
	f, _ := args.Get(0).(*models.FeatureRequest)
	return f, args.Error(1)
}

func (m *mockFeatureService) Get(ctx context.Context, id, viewerTesterID int) (*models.FeatureRequestDetail, error) {
	args := m.Called(ctx, id, viewerTesterID)
	f, _ := args.Get(0).(*models.FeatureRequestDetail)
	return f, args.Error(1)
}

func (m *mockFeatureService) UpdateContent(ctx context.Context, id int, principal *models.Principal, patch models.FeatureContentPatch) (*models.FeatureRequest, error) {
	args := m.Called(ctx, id, principal, patch)
	f, _ := args.Get(0).(*models.FeatureRequest)
	return f, args.Error(1)
}

func (m *mockFeatureService) AdminUpdate(ctx context.Context, id int, patch models.FeatureAdminPatch) (*models.FeatureRequest, error) {
	args := m.Called(ctx, id, patch)
	f, _ := args.Get(0).(*models.FeatureRequest)
	return f, args.Error(1)
}

type mockVoteService struct{ mock.Mock }

func (m *mockVoteService) Toggle(ctx context.Context, testerID, featureID int) (*models.VoteResult, error) {
	args := m.Called(ctx, testerID, featureID)
	r, _ := args.Get(0).(*models.VoteResult)
	return r, args.Error(1)
}

type mockCommentService struct{ mock.Mock }

func (m *mockCommentService) Post(ctx context.Context, author *models.Principal, target models.ReportRef, content string, asAdmin bool) (*models.Comment, error) {
	args := m.Called(ctx, author, target, content, asAdmin)
	c, _ := args.Get(0).(*models.Comment)
	return c, args.Error(1)
}

func (m *mockCommentService) List(ctx context.Context, target models.ReportRef) ([]models.Comment, error) {
	args := m.Called(ctx, target)
	l, _ := args.Get(0).([]models.Comment)
	return l, args.Error(1)
}

type mockAttachmentService struct{ mock.Mock }

func (m *mockAttachmentService) MaxBytes() int64 {
	return int64(m.Called().Int(0))
}

func (m *mockAttachmentService) Upload(ctx context.Context, fileName, declaredType string, size int64, r io.Reader) (*models.UploadedFile, error) {
	var body []byte
	if r != nil {
		body, _ = io.ReadAll(r)
	}
	args := m.Called(ctx, fileName, declaredType, size, body)
	f, _ := args.Get(0).(*models.UploadedFile)
	return f, args.Error(1)
}

type mockTrackerService struct{ mock.Mock }

func (m *mockTrackerService) Query(ctx context.Context, q models.TrackerQuery) (*models.TrackerResult, error) {
	args := m.Called(ctx, q)
	r, _ := args.Get(0).(*models.TrackerResult)
	return r, args.Error(1)
}

type mockTriageService struct{ mock.Mock }

func (m *mockTriageService) BulkUpdateStatus(ctx context.Context, items []models.ReportRef, status string) (*models.BulkStatusResult, error) {
	args := m.Called(ctx, items, status)
	r, _ := args.Get(0).(*models.BulkStatusResult)
	return r, args.Error(1)
}

func (m *mockTriageService) UpdateTester(ctx context.Context, id int, patch models.TesterAdminPatch) (*models.Tester, error) {
	args := m.Called(ctx, id, patch)
	t, _ := args.Get(0).(*models.Tester)
	return t, args.Error(1)
}

type mockAnalyticsService struct{ mock.Mock }

func (m *mockAnalyticsService) Compute(ctx context.Context) (*services.Analytics, error) {
	args := m.Called(ctx)
	a, _ := args.Get(0).(*services.Analytics)
	return a, args.Error(1)
}

type mockAnnouncementService struct{ mock.Mock }

func (m *mockAnnouncementService) List(ctx context.Context, limit int) ([]models.Announcement, error) {
	args := m.Called(ctx, limit)
	l, _ := args.Get(0).([]models.Announcement)
	return l, args.Error(1)
}

func (m *mockAnnouncementService) Create(ctx context.Context, in models.AnnouncementInput) (*models.Announcement, error) {
	args := m.Called(ctx, in)
	a, _ := args.Get(0).(*models.Announcement)
	return a, args.Error(1)
}

func (m *mockAnnouncementService) Update(ctx context.Context, id int, patch models.AnnouncementPatch) (*models.Announcement, error) {
	args := m.Called(ctx, id, patch)
	a, _ := args.Get(0).(*models.Announcement)
	return a, args.Error(1)
}

func (m *mockAnnouncementService) Delete(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

type mockDashboardService struct{ mock.Mock }

func (m *mockDashboardService) Load(ctx context.Context, tester *models.Tester) (*services.Dashboard, error) {
	args := m.Called(ctx, tester)
	d, _ := args.Get(0).(*services.Dashboard)
	return d, args.Error(1)
}

type mockSeedService struct{ mock.Mock }

func (m *mockSeedService) Run(ctx context.Context, callerExternalID string) (*services.SeedResult, error) {
	args := m.Called(ctx, callerExternalID)
	r, _ := args.Get(0).(*services.SeedResult)
	return r, args.Error(1)
}
