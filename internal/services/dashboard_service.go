package services

import (
	"context"
	"database/sql"
	"slices"
	"sync"
	"time"

	"betaportal/internal/models"
	"betaportal/internal/observability"
	contextutils "betaportal/internal/utils"

	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"
)

const (
	dashboardRecentItems   = 5
	dashboardAnnouncements = 2
)

// Widget is one independently loaded dashboard panel. Error is set instead of
// Data when the panel could not be loaded.
type Widget[T any] struct {
	Data  T      `json:"data"`
	Error string `json:"error,omitempty"`
}

// DashboardStats are the headline counters on the portal home page
type DashboardStats struct {
	MyBugs        int `json:"myBugs"`
	MyFeatures    int `json:"myFeatures"`
	OpenBugs      int `json:"openBugs"`
	OpenFeatures  int `json:"openFeatures"`
	FixedThisWeek int `json:"fixedThisWeek"`
	MyVotes       int `json:"myVotes"`
}

// Dashboard is the portal home page payload
type Dashboard struct {
	Stats          Widget[*DashboardStats]       `json:"stats"`
	RecentActivity Widget[[]models.TrackerRow]   `json:"recentActivity"`
	Announcements  Widget[[]models.Announcement] `json:"announcements"`
}

// DashboardService loads the portal home page widgets
type DashboardService struct {
	db            *sql.DB
	bugs          *BugService
	features      *FeatureService
	announcements *AnnouncementService
	logger        *observability.Logger
	now           func() time.Time
}

// NewDashboardService creates a new DashboardService instance
func NewDashboardService(db *sql.DB, bugs *BugService, features *FeatureService, announcements *AnnouncementService, logger *observability.Logger) *DashboardService {
	if db == nil {
		panic("NewDashboardService: db is nil")
	}
	if logger == nil {
		panic("NewDashboardService: logger is nil")
	}
	return &DashboardService{
		db:            db,
		bugs:          bugs,
		features:      features,
		announcements: announcements,
		logger:        logger,
		now:           time.Now,
	}
}

// Load builds the dashboard for tester. Widgets load concurrently and a failing
// widget only blanks itself; Load itself never fails on a widget error.
func (s *DashboardService) Load(ctx context.Context, tester *models.Tester) (result0 *Dashboard, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "load_dashboard",
		observability.AttributeTesterID(tester.ID),
	)
	defer observability.FinishSpan(span, &err)

	out := &Dashboard{}
	var mu sync.Mutex
	fail := func(widget string, err error) string {
		s.logger.Error(ctx, "Dashboard widget failed", err, map[string]interface{}{
			"widget":    widget,
			"tester_id": tester.ID,
		})
		return userMessage(err)
	}

	var g errgroup.Group
	g.Go(func() error {
		stats, err := s.stats(ctx, tester.ID)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			out.Stats.Error = fail("stats", err)
			return nil
		}
		out.Stats.Data = stats
		return nil
	})
	g.Go(func() error {
		rows, err := s.recentActivity(ctx)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			out.RecentActivity.Error = fail("recent_activity", err)
			return nil
		}
		out.RecentActivity.Data = rows
		return nil
	})
	g.Go(func() error {
		list, err := s.announcements.List(ctx, dashboardAnnouncements)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			out.Announcements.Error = fail("announcements", err)
			return nil
		}
		out.Announcements.Data = list
		return nil
	})
	_ = g.Wait()

	return out, nil
}

func (s *DashboardService) stats(ctx context.Context, testerID int) (*DashboardStats, error) {
	var st DashboardStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM bug_reports WHERE tester_id = $1),
			(SELECT COUNT(*) FROM feature_requests WHERE tester_id = $1),
			(SELECT COUNT(*) FROM bug_reports WHERE status = ANY($2)),
			(SELECT COUNT(*) FROM feature_requests WHERE status = ANY($3)),
			(SELECT COUNT(*) FROM bug_reports WHERE status = $4 AND resolved_at >= $5),
			(SELECT COUNT(*) FROM votes WHERE tester_id = $1)`,
		testerID,
		pq.Array(models.OpenBugStatuses),
		pq.Array(models.OpenFeatureStatuses),
		models.BugStatusFixed,
		s.now().Add(-7*24*time.Hour),
	).Scan(&st.MyBugs, &st.MyFeatures, &st.OpenBugs, &st.OpenFeatures, &st.FixedThisWeek, &st.MyVotes)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load dashboard stats")
	}
	return &st, nil
}

// recentActivity merges the newest bugs and features across the portal
func (s *DashboardService) recentActivity(ctx context.Context) ([]models.TrackerRow, error) {
	bugs, err := s.bugs.List(ctx, models.ListBugsFilter{Page: 1, Limit: dashboardRecentItems})
	if err != nil {
		return nil, err
	}
	features, err := s.features.List(ctx, models.ListFeaturesFilter{Page: 1, Limit: dashboardRecentItems, Sort: FeatureSortNewest})
	if err != nil {
		return nil, err
	}

	rows := make([]models.TrackerRow, 0, len(bugs.Bugs)+len(features.Features))
	for _, b := range bugs.Bugs {
		rows = append(rows, BugTrackerRow(b))
	}
	for _, f := range features.Features {
		rows = append(rows, FeatureTrackerRow(f))
	}
	slices.SortStableFunc(rows, func(a, b models.TrackerRow) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(rows) > dashboardRecentItems {
		rows = rows[:dashboardRecentItems]
	}
	return rows, nil
}
