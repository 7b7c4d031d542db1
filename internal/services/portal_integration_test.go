//go:build integration

package services

import (
	"context"
	"sync"
	"testing"

	"betaportal/internal/models"
	contextutils "betaportal/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumbering_SequentialWithinTransaction(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	tester := s.registerApproved(t, "user_1", "Ana", "ana@example.com")

	first := s.createBug(t, tester, "First")
	second := s.createBug(t, tester, "Second")
	feature := s.createFeature(t, tester, "Export")

	assert.Equal(t, "BUG-001", first.ReportNumber)
	assert.Equal(t, "BUG-002", second.ReportNumber)
	assert.Equal(t, "FR-001", feature.RequestNumber)

	// a rejected create does not burn a number
	_, err := s.bugs.Create(ctx, tester, models.CreateBugRequest{Title: "Bad", Category: "Other", Severity: "catastrophic"})
	require.Error(t, err)
	current, err := s.numbering.Current(ctx, s.db, models.ReportKindBug)
	require.NoError(t, err)
	assert.Equal(t, 2, current)
}

func TestNumbering_ConcurrentCreatesGetDistinctNumbers(t *testing.T) {
	s := newTestServices(t)
	tester := s.registerApproved(t, "user_1", "Ana", "ana@example.com")

	const n = 8
	var wg sync.WaitGroup
	numbers := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bug, err := s.bugs.Create(context.Background(), tester, models.CreateBugRequest{
				Title: "Concurrent", Category: "Other", Severity: models.SeverityLow,
			})
			if assert.NoError(t, err) {
				numbers <- bug.ReportNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for num := range numbers {
		assert.False(t, seen[num], "duplicate number %s", num)
		seen[num] = true
	}
	assert.Len(t, seen, n)
}

func TestTesterService_RegistrationAndGate(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	tester, err := s.testers.Register(ctx, "user_a", models.RegisterRequest{
		Name: "Ana", Email: "Ana@Example.com", Role: "IA Inspector",
		InterestedProducts: []string{"AdaptAero", " ", "AdaptBooks"}, AgreedToTerms: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TesterStatusPending, tester.Status)
	assert.Equal(t, "ana@example.com", tester.Email)
	assert.Equal(t, "AdaptAero,AdaptBooks", tester.InterestedProducts.String)

	_, err = s.testers.Register(ctx, "user_b", models.RegisterRequest{
		Name: "Other", Email: "ana@example.com", Role: "Other", AgreedToTerms: true,
	})
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeRecordExists, contextutils.GetErrorCode(err))
	assert.Contains(t, err.Error(), "An application with this email already exists")

	_, err = s.testers.Register(ctx, "user_c", models.RegisterRequest{Name: "C", Email: "c@example.com", Role: "Other"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "You must agree to the beta testing terms")

	// pending: gate shows under review and tester routes are refused
	assert.Equal(t, ScreenUnderReview, Decide(s.policy, "user_a", tester).Screen)
	_, err = s.testers.RequireTester(ctx, "user_a")
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeTesterNotApproved, contextutils.GetErrorCode(err))
	assert.Contains(t, err.Error(), "Your beta tester account is pending. Please wait for approval.")

	_, err = s.testers.RequireTester(ctx, "user_unknown")
	assert.ErrorIs(t, err, contextutils.ErrTesterNotRegistered)

	// approval by an admin sends the email and opens the portal
	approved, err := s.triage.ApproveTester(ctx, tester.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TesterStatusApproved, approved.Status)
	assert.True(t, approved.ApprovedAt.Valid)
	require.Len(t, s.mail.Sent(), 1)
	assert.Equal(t, "ana@example.com", s.mail.Sent()[0].To)

	got, err := s.testers.RequireTester(ctx, "user_a")
	require.NoError(t, err)
	assert.Equal(t, ScreenPortal, Decide(s.policy, "user_a", got).Screen)

	_, err = s.triage.SuspendTester(ctx, tester.ID)
	require.NoError(t, err)
	suspended, err := s.testers.GetByExternalID(ctx, "user_a")
	require.NoError(t, err)
	assert.Equal(t, ScreenSuspended, Decide(s.policy, "user_a", suspended).Screen)
}

func TestTesterService_ListAndProfile(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	ana := s.registerApproved(t, "user_a", "Ana", "ana@example.com")
	_, err := s.testers.Register(ctx, "user_b", models.RegisterRequest{Name: "Bo", Email: "bo@example.com", Role: "Other", AgreedToTerms: true})
	require.NoError(t, err)
	s.createBug(t, ana, "One")

	all, err := s.testers.List(ctx, "all")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := s.testers.List(ctx, "pending")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Bo", pending[0].Name)

	_, err = s.testers.List(ctx, "sleeping")
	require.Error(t, err)

	company := "Skyline Aero"
	updated, err := s.testers.UpdateMe(ctx, "user_a", models.ProfilePatch{Company: &company})
	require.NoError(t, err)
	assert.Equal(t, "Skyline Aero", updated.Company.String)
	assert.True(t, updated.LastActiveAt.Valid)

	me, err := s.testers.GetMe(ctx, "user_a")
	require.NoError(t, err)
	assert.Equal(t, 1, me.Counts.BugReports)

	_, err = s.testers.GetMe(ctx, "user_missing")
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeRecordNotFound, contextutils.GetErrorCode(err))
}

func TestBugService_OwnershipAndAdminUpdate(t *testing.T) {
	s := newTestServices(t, "user_admin")
	ctx := context.Background()
	owner := s.registerApproved(t, "user_owner", "Owner", "owner@example.com")
	other := s.registerApproved(t, "user_other", "Other", "other@example.com")

	bug, err := s.bugs.Create(ctx, owner, models.CreateBugRequest{
		Title: "PDF cut off", Category: "Accounting / GL", Severity: models.SeverityHigh,
		AttachmentURLs: []models.UploadedFile{{URL: "/uploads/a.png", FileName: "a.png", FileSize: 10, MimeType: "image/png"}},
	})
	require.NoError(t, err)

	newTitle := "Invoice PDF cut off"
	_, err = s.bugs.UpdateContent(ctx, bug.ID, &models.Principal{ExternalID: "user_other", Tester: other}, models.BugContentPatch{Title: &newTitle})
	require.Error(t, err)
	assert.ErrorIs(t, err, contextutils.ErrForbidden)

	unchanged, err := s.bugs.Get(ctx, bug.ID)
	require.NoError(t, err)
	assert.Equal(t, "PDF cut off", unchanged.Title)
	require.Len(t, unchanged.Attachments, 1)
	assert.Equal(t, "Owner", unchanged.Tester.Name)

	updated, err := s.bugs.UpdateContent(ctx, bug.ID, &models.Principal{ExternalID: "user_owner", Tester: owner}, models.BugContentPatch{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, newTitle, updated.Title)

	// admins may edit without owning
	sev := models.SeverityCritical
	_, err = s.bugs.UpdateContent(ctx, bug.ID, &models.Principal{ExternalID: "user_admin", IsAdmin: true}, models.BugContentPatch{Severity: &sev})
	require.NoError(t, err)

	fixed := models.BugStatusFixed
	version := "v0.9.4"
	resolved, err := s.bugs.AdminUpdate(ctx, bug.ID, models.BugAdminPatch{Status: &fixed, FixedInVersion: &version})
	require.NoError(t, err)
	assert.Equal(t, fixed, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, version, *resolved.FixedInVersion)

	bogus := "done"
	_, err = s.bugs.AdminUpdate(ctx, bug.ID, models.BugAdminPatch{Status: &bogus})
	require.Error(t, err)

	_, err = s.bugs.Get(ctx, 9999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bug report not found")
}

func TestBugService_ListFiltersAndPaging(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	tester := s.registerApproved(t, "user_1", "Ana", "ana@example.com")
	for _, title := range []string{"Login 100% broken", "Slow dashboard", "Login timeout"} {
		s.createBug(t, tester, title)
	}

	list, err := s.bugs.List(ctx, models.ListBugsFilter{Search: "login", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, 2, list.TotalPages)
	require.Len(t, list.Bugs, 1)
	assert.Equal(t, "Login timeout", list.Bugs[0].Title)
	assert.Equal(t, "Ana", list.Bugs[0].TesterName)

	list, err = s.bugs.List(ctx, models.ListBugsFilter{Search: "100%"})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)

	list, err = s.bugs.List(ctx, models.ListBugsFilter{Search: "bug-002"})
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "Slow dashboard", list.Bugs[0].Title)
}

func TestVoteService_ToggleScenario(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	author := s.registerApproved(t, "user_author", "Author", "author@example.com")
	voter := s.registerApproved(t, "user_voter", "Voter", "voter@example.com")
	feature := s.createFeature(t, author, "CSV import")

	res, err := s.votes.Toggle(ctx, voter.ID, feature.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VoteResult{Voted: true, VoteCount: 1}, *res)

	detail, err := s.features.Get(ctx, feature.ID, voter.ID)
	require.NoError(t, err)
	assert.True(t, detail.HasVoted)
	assert.Equal(t, 1, detail.VoteCount)

	res, err = s.votes.Toggle(ctx, voter.ID, feature.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VoteResult{Voted: false, VoteCount: 0}, *res)

	voted, err := s.votes.HasVoted(ctx, voter.ID, feature.ID)
	require.NoError(t, err)
	assert.False(t, voted)

	_, err = s.votes.Toggle(ctx, voter.ID, 9999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Feature request not found")
}

func TestVoteService_ConcurrentTogglesStayConsistent(t *testing.T) {
	s := newTestServices(t)
	author := s.registerApproved(t, "user_author", "Author", "author@example.com")
	feature := s.createFeature(t, author, "Offline mode")

	const voters = 6
	ids := make([]int, voters)
	for i := range ids {
		ids[i] = s.registerApproved(t, "user_v"+string(rune('a'+i)), "Voter", "v"+string(rune('a'+i))+"@example.com").ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(testerID int) {
			defer wg.Done()
			_, err := s.votes.Toggle(context.Background(), testerID, feature.ID)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	detail, err := s.features.Get(context.Background(), feature.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, voters, detail.VoteCount)

	changed, err := s.votes.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
}

func TestCommentService_PostAndList(t *testing.T) {
	s := newTestServices(t, "user_admin")
	ctx := context.Background()
	tester := s.registerApproved(t, "user_1", "Ana", "ana@example.com")
	admin := s.registerApproved(t, "user_admin", "Jamie", "jamie@example.com")
	bug := s.createBug(t, tester, "Receipt missing tag")

	_, err := CommentTarget(models.CreateCommentRequest{Content: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Content and a bug or feature ID are required")

	both := 1
	_, err = CommentTarget(models.CreateCommentRequest{BugReportID: &both, FeatureRequestID: &both, Content: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Provide either a bug or a feature ID, not both")

	author := &models.Principal{ExternalID: "user_1", Tester: tester}
	c1, err := s.comments.Post(ctx, author, models.BugRef(bug.ID), "  I can reproduce this  ", true)
	require.NoError(t, err)
	assert.Equal(t, "I can reproduce this", c1.Content)
	assert.Equal(t, "Ana", c1.AuthorName)
	assert.False(t, c1.IsAdmin, "non-admins cannot post as admin")

	adminAuthor := &models.Principal{ExternalID: "user_admin", IsAdmin: true, Tester: admin}
	c2, err := s.comments.Post(ctx, adminAuthor, models.BugRef(bug.ID), "Fixed in v0.9.3", true)
	require.NoError(t, err)
	assert.Equal(t, "Jamie (Admin)", c2.AuthorName)
	assert.True(t, c2.IsAdmin)

	_, err = s.comments.Post(ctx, author, models.BugRef(bug.ID), "   ", false)
	require.Error(t, err)

	_, err = s.comments.Post(ctx, author, models.FeatureRef(4242), "Hello", false)
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeRecordNotFound, contextutils.GetErrorCode(err))

	thread, err := s.comments.List(ctx, models.BugRef(bug.ID))
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, c1.ID, thread[0].ID)
	assert.Equal(t, c2.ID, thread[1].ID)
}

func TestTesterService_DeleteCascades(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	doomed := s.registerApproved(t, "user_doomed", "Doomed", "doomed@example.com")
	other := s.registerApproved(t, "user_other", "Other", "other@example.com")

	bug, err := s.bugs.Create(ctx, doomed, models.CreateBugRequest{
		Title: "Mine", Category: "Other", Severity: models.SeverityLow,
		AttachmentURLs: []models.UploadedFile{{URL: "/uploads/x.png", FileName: "x.png", FileSize: 3, MimeType: "image/png"}},
	})
	require.NoError(t, err)
	ownFeature := s.createFeature(t, doomed, "My idea")
	otherFeature := s.createFeature(t, other, "Their idea")

	_, err = s.comments.Post(ctx, &models.Principal{Tester: other}, models.BugRef(bug.ID), "Other's comment on doomed bug", false)
	require.NoError(t, err)
	_, err = s.comments.Post(ctx, &models.Principal{Tester: doomed}, models.FeatureRef(otherFeature.ID), "Doomed's comment elsewhere", false)
	require.NoError(t, err)
	_, err = s.votes.Toggle(ctx, other.ID, ownFeature.ID)
	require.NoError(t, err)
	res, err := s.votes.Toggle(ctx, doomed.ID, otherFeature.ID)
	require.NoError(t, err)
	require.Equal(t, 1, res.VoteCount)

	summary, err := s.testers.Delete(ctx, doomed.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.BugReports)
	assert.Equal(t, 1, summary.Features)
	assert.Equal(t, 2, summary.Comments)
	assert.Equal(t, 2, summary.Votes)
	assert.Equal(t, 1, summary.Attachments)

	for table, want := range map[string]int{"testers": 1, "bug_reports": 0, "feature_requests": 1, "comments": 0, "votes": 0, "attachments": 0} {
		n, err := tableCount(ctx, s.db, table)
		require.NoError(t, err)
		assert.Equal(t, want, n, table)
	}

	remaining, err := s.features.Get(ctx, otherFeature.ID, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining.VoteCount)

	_, err = s.testers.Delete(ctx, doomed.ID)
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeRecordNotFound, contextutils.GetErrorCode(err))
}

func TestTesterService_DeleteRollsBackOnMidCascadeFailure(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	doomed := s.registerApproved(t, "user_doomed", "Doomed", "doomed@example.com")
	other := s.registerApproved(t, "user_other", "Other", "other@example.com")

	bug, err := s.bugs.Create(ctx, doomed, models.CreateBugRequest{
		Title: "Mine", Category: "Other", Severity: models.SeverityLow,
		AttachmentURLs: []models.UploadedFile{{URL: "/uploads/x.png", FileName: "x.png", FileSize: 3, MimeType: "image/png"}},
	})
	require.NoError(t, err)
	s.createFeature(t, doomed, "My idea")
	otherFeature := s.createFeature(t, other, "Their idea")
	_, err = s.comments.Post(ctx, &models.Principal{Tester: other}, models.BugRef(bug.ID), "Comment on doomed bug", false)
	require.NoError(t, err)
	_, err = s.votes.Toggle(ctx, doomed.ID, otherFeature.ID)
	require.NoError(t, err)

	// bug reports go after attachments, comments and votes, so this fails mid-cascade
	_, err = s.db.ExecContext(ctx, `
		CREATE OR REPLACE FUNCTION fail_bug_delete() RETURNS trigger AS $$
		BEGIN
			RAISE EXCEPTION 'bug report delete blocked';
		END;
		$$ LANGUAGE plpgsql`)
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `CREATE TRIGGER fail_bug_delete BEFORE DELETE ON bug_reports FOR EACH ROW EXECUTE FUNCTION fail_bug_delete()`)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(context.Background(), `DROP TRIGGER IF EXISTS fail_bug_delete ON bug_reports`)
		_, _ = s.db.ExecContext(context.Background(), `DROP FUNCTION IF EXISTS fail_bug_delete()`)
	})

	before := map[string]int{}
	tables := []string{"testers", "bug_reports", "feature_requests", "comments", "votes", "attachments"}
	for _, table := range tables {
		n, err := tableCount(ctx, s.db, table)
		require.NoError(t, err)
		before[table] = n
	}

	_, err = s.testers.Delete(ctx, doomed.ID)
	require.Error(t, err)

	for _, table := range tables {
		n, err := tableCount(ctx, s.db, table)
		require.NoError(t, err)
		assert.Equal(t, before[table], n, table)
	}

	still, err := s.testers.GetByID(ctx, doomed.ID)
	require.NoError(t, err)
	assert.Equal(t, doomed.ID, still.ID)

	voted, err := s.features.Get(ctx, otherFeature.ID, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, voted.VoteCount)
}

func TestTriageService_BulkUpdatePartialFailure(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	tester := s.registerApproved(t, "user_1", "Ana", "ana@example.com")
	bug := s.createBug(t, tester, "One")
	feature := s.createFeature(t, tester, "Two")

	result, err := s.triage.BulkUpdateStatus(ctx, []models.ReportRef{
		models.BugRef(bug.ID),
		models.BugRef(9999),
		models.FeatureRef(feature.ID),
	}, models.BugStatusInProgress)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, result.Results[1].OK)
	assert.Equal(t, "Bug report not found", result.Results[1].Error)

	got, err := s.bugs.Get(ctx, bug.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BugStatusInProgress, got.Status)

	_, err = s.triage.BulkUpdateStatus(ctx, nil, "fixed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Items and status are required")
}

func TestTrackerService_Query(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	tester := s.registerApproved(t, "user_1", "Ana", "ana@example.com")
	s.createBug(t, tester, "Bug one")
	feature := s.createFeature(t, tester, "Feature one")
	_, err := s.votes.Toggle(ctx, tester.ID, feature.ID)
	require.NoError(t, err)

	result, err := s.tracker.Query(ctx, models.TrackerQuery{Sort: models.TrackerSortVotes})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "FR-001", result.Rows[0].Number)
	assert.Equal(t, 1, result.TotalPages)

	result, err = s.tracker.Query(ctx, models.TrackerQuery{Scope: models.TrackerScopeBugs, Statuses: []string{"fixed"}})
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
	assert.Equal(t, 1, result.TotalPages)
}

func TestSeedService_Idempotent(t *testing.T) {
	s := newTestServices(t, "user_admin", "user_second")
	ctx := context.Background()

	first, err := s.seed.Run(ctx, "user_caller")
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Equal(t, []string{
		"Created admin tester account",
		"Seeded 5 bug reports",
		"Seeded 4 feature requests",
		"Seeded 3 comments",
		"Seeded 4 announcements",
	}, first.Results)

	admin, err := s.testers.GetByExternalID(ctx, "user_admin")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, models.TesterStatusActive, admin.Status)

	features, err := s.features.List(ctx, models.ListFeaturesFilter{})
	require.NoError(t, err)
	require.Len(t, features.Features, 4)
	assert.Equal(t, "FR-002", features.Features[0].RequestNumber)
	assert.Equal(t, 12, features.Features[0].VoteCount)

	bugs, err := s.bugs.List(ctx, models.ListBugsFilter{Search: "BUG-001"})
	require.NoError(t, err)
	require.Len(t, bugs.Bugs, 1)
	assert.Equal(t, models.BugStatusFixed, bugs.Bugs[0].Status)
	assert.NotNil(t, bugs.Bugs[0].ResolvedAt)

	detail, err := s.bugs.Get(ctx, bugs.Bugs[0].ID)
	require.NoError(t, err)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "Jamie (Admin)", detail.Comments[0].AuthorName)

	suspended := models.TesterStatusSuspended
	_, _, err = s.testers.UpdateStatus(ctx, admin.ID, models.TesterAdminPatch{Status: &suspended})
	require.NoError(t, err)

	second, err := s.seed.Run(ctx, "user_caller")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Admin tester account already exists",
		"Bug reports already exist (5 found)",
		"Feature requests already exist (4 found)",
		"Comments already exist (3 found)",
		"Announcements already exist (4 found)",
	}, second.Results)

	admin, err = s.testers.GetByExternalID(ctx, "user_admin")
	require.NoError(t, err)
	assert.Equal(t, models.TesterStatusActive, admin.Status)
}

func TestAnalyticsAndDashboard_AfterSeed(t *testing.T) {
	s := newTestServices(t, "user_admin")
	ctx := context.Background()
	_, err := s.seed.Run(ctx, "")
	require.NoError(t, err)

	a, err := s.analytics.Compute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Testers.Total)
	assert.Equal(t, 1, a.Testers.Active)
	assert.Equal(t, 5, a.Bugs.Total)
	assert.Equal(t, 4, a.Bugs.Open)
	assert.Equal(t, 1, a.Bugs.Fixed)
	assert.Equal(t, 2, a.Bugs.BySeverity["high"])
	assert.Equal(t, 4, a.Features.Total)
	require.Len(t, a.Features.TopVoted, 4)
	assert.Equal(t, 12, a.Features.TopVoted[0].VoteCount)
	assert.Equal(t, 1, a.Activity.LastWeek.Resolved)

	admin, err := s.testers.GetByExternalID(ctx, "user_admin")
	require.NoError(t, err)
	d, err := s.dashboard.Load(ctx, admin)
	require.NoError(t, err)
	require.Empty(t, d.Stats.Error)
	assert.Equal(t, 5, d.Stats.Data.MyBugs)
	assert.Equal(t, 4, d.Stats.Data.MyFeatures)
	assert.Equal(t, 4, d.Stats.Data.OpenBugs)
	assert.Equal(t, 4, d.Stats.Data.OpenFeatures)
	assert.Equal(t, 1, d.Stats.Data.FixedThisWeek)
	assert.Len(t, d.RecentActivity.Data, 5)
	require.Len(t, d.Announcements.Data, 2)
	assert.True(t, d.Announcements.Data[0].IsPinned)
}

func TestAnnouncementService_CRUD(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	_, err := s.ann.Create(ctx, models.AnnouncementInput{Title: "x", Content: "y", Type: "gossip"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Type must be one of")

	a, err := s.ann.Create(ctx, models.AnnouncementInput{Title: "Maintenance", Content: "Tonight", Type: models.AnnouncementTypeMaintenance})
	require.NoError(t, err)
	pinned := true
	updated, err := s.ann.Update(ctx, a.ID, models.AnnouncementPatch{IsPinned: &pinned})
	require.NoError(t, err)
	assert.True(t, updated.IsPinned)

	require.NoError(t, s.ann.Delete(ctx, a.ID))
	err = s.ann.Delete(ctx, a.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Announcement not found")
}
