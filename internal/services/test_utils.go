//go:build integration

package services

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"betaportal/internal/config"
	"betaportal/internal/database"
	"betaportal/internal/models"
	"betaportal/internal/observability"

	"github.com/stretchr/testify/require"
)

// SharedTestDBSetup provides a clean, migrated database for each integration test
func SharedTestDBSetup(t *testing.T) *sql.DB {
	observabilityLogger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	dbManager := database.NewManager(observabilityLogger)

	// Require TEST_DATABASE_URL environment variable to be set
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Fatal("TEST_DATABASE_URL environment variable must be set for integration tests")
	}

	cfg := database.DefaultDatabaseConfig()
	cfg.URL = databaseURL
	db, err := dbManager.InitDB(cfg)
	require.NoError(t, err)

	CleanupTestDatabase(db, t)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// CleanupTestDatabase empties every table and restarts identities
func CleanupTestDatabase(db *sql.DB, t *testing.T) {
	require.NoError(t, database.TruncateAll(context.Background(), db))
}

// testServices wires the portal services over one database
type testServices struct {
	db        *sql.DB
	logger    *observability.Logger
	policy    *AccessPolicy
	numbering *NumberingService
	testers   *TesterService
	bugs      *BugService
	features  *FeatureService
	votes     *VoteService
	comments  *CommentService
	tracker   *TrackerService
	triage    *TriageService
	analytics *AnalyticsService
	ann       *AnnouncementService
	seed      *SeedService
	dashboard *DashboardService
	mail      *TestEmailService
}

func newTestServices(t *testing.T, adminIDs ...string) *testServices {
	db := SharedTestDBSetup(t)
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})

	s := &testServices{db: db, logger: logger, policy: NewAccessPolicy(adminIDs)}
	s.numbering = NewNumberingService(logger)
	s.testers = NewTesterService(db, logger, nil)
	s.bugs = NewBugService(db, logger, s.numbering, s.testers, nil)
	s.features = NewFeatureService(db, logger, s.numbering, s.testers, nil)
	s.votes = NewVoteService(db, logger, nil)
	s.comments = NewCommentService(db, logger)
	s.tracker = NewTrackerService(s.bugs, s.features, logger)
	s.mail = NewTestEmailService(&config.Config{Server: config.ServerConfig{PortalBaseURL: "http://localhost:3000"}}, logger)
	s.triage = NewTriageService(s.bugs, s.features, s.testers, s.mail, logger, nil)
	s.analytics = NewAnalyticsService(db, logger)
	s.ann = NewAnnouncementService(db, logger)
	s.seed = NewSeedService(db, logger, s.numbering, s.policy)
	s.dashboard = NewDashboardService(db, s.bugs, s.features, s.ann, logger)
	return s
}

// registerApproved registers a tester bound to externalID and approves it
func (s *testServices) registerApproved(t *testing.T, externalID, name, email string) *models.Tester {
	t.Helper()
	ctx := context.Background()
	tester, err := s.testers.Register(ctx, externalID, models.RegisterRequest{
		Name: name, Email: email, Role: "A&P Mechanic", AgreedToTerms: true,
	})
	require.NoError(t, err)

	status := models.TesterStatusApproved
	tester, _, err = s.testers.UpdateStatus(ctx, tester.ID, models.TesterAdminPatch{Status: &status})
	require.NoError(t, err)
	return tester
}

func (s *testServices) createBug(t *testing.T, tester *models.Tester, title string) *models.BugReport {
	t.Helper()
	bug, err := s.bugs.Create(context.Background(), tester, models.CreateBugRequest{
		Title: title, Category: "Work Orders", Severity: models.SeverityMedium,
	})
	require.NoError(t, err)
	return bug
}

func (s *testServices) createFeature(t *testing.T, tester *models.Tester, title string) *models.FeatureRequest {
	t.Helper()
	feature, err := s.features.Create(context.Background(), tester, models.CreateFeatureRequest{
		Title: title, Category: "Reporting", Description: "Please add " + title,
	})
	require.NoError(t, err)
	return feature
}
