package services

import (
	"context"
	"database/sql"
	"math"
	"slices"
	"time"

	"betaportal/internal/models"
	"betaportal/internal/observability"
	contextutils "betaportal/internal/utils"

	"golang.org/x/sync/errgroup"
)

// TesterAnalytics aggregates the tester population
type TesterAnalytics struct {
	Total                int            `json:"total"`
	Pending              int            `json:"pending"`
	Approved             int            `json:"approved"`
	Active               int            `json:"active"`
	Suspended            int            `json:"suspended"`
	ByRole               map[string]int `json:"byRole"`
	ByCurrentSoftware    map[string]int `json:"byCurrentSoftware"`
	ByInterestedProducts map[string]int `json:"byInterestedProducts"`
}

// BugAnalytics aggregates bug reports
type BugAnalytics struct {
	Total             int            `json:"total"`
	Open              int            `json:"open"`
	Fixed             int            `json:"fixed"`
	Closed            int            `json:"closed"`
	BySeverity        map[string]int `json:"bySeverity"`
	ByCategory        map[string]int `json:"byCategory"`
	AvgResolutionDays float64        `json:"avgResolutionDays"`
}

// TopVotedFeature is one entry of the most-voted list
type TopVotedFeature struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	VoteCount     int    `json:"voteCount"`
	RequestNumber string `json:"requestNumber"`
}

// FeatureAnalytics aggregates feature requests
type FeatureAnalytics struct {
	Total    int               `json:"total"`
	ByStatus map[string]int    `json:"byStatus"`
	TopVoted []TopVotedFeature `json:"topVoted"`
}

// WeeklyActivity counts what happened in the trailing seven days
type WeeklyActivity struct {
	NewTesters  int `json:"newTesters"`
	NewBugs     int `json:"newBugs"`
	NewFeatures int `json:"newFeatures"`
	Resolved    int `json:"resolved"`
}

// Analytics is the admin analytics payload
type Analytics struct {
	Testers  TesterAnalytics  `json:"testers"`
	Bugs     BugAnalytics     `json:"bugs"`
	Features FeatureAnalytics `json:"features"`
	Activity struct {
		LastWeek WeeklyActivity `json:"lastWeek"`
	} `json:"activity"`
}

// AnalyticsService computes admin dashboard aggregates
type AnalyticsService struct {
	db     *sql.DB
	logger *observability.Logger
	now    func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService instance
func NewAnalyticsService(db *sql.DB, logger *observability.Logger) *AnalyticsService {
	if db == nil {
		panic("NewAnalyticsService: db is nil")
	}
	if logger == nil {
		panic("NewAnalyticsService: logger is nil")
	}
	return &AnalyticsService{db: db, logger: logger, now: time.Now}
}

// Compute runs the aggregate queries concurrently. Any failure fails the whole report.
func (s *AnalyticsService) Compute(ctx context.Context) (result0 *Analytics, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "compute_analytics")
	defer observability.FinishSpan(span, &err)

	out := &Analytics{}
	weekAgo := s.now().AddDate(0, 0, -7)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.testerStats(gctx, &out.Testers) })
	g.Go(func() error { return s.bugStats(gctx, &out.Bugs) })
	g.Go(func() error { return s.featureStats(gctx, &out.Features) })
	g.Go(func() error { return s.weeklyActivity(gctx, weekAgo, &out.Activity.LastWeek) })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AnalyticsService) testerStats(ctx context.Context, out *TesterAnalytics) error {
	out.ByRole = map[string]int{}
	out.ByCurrentSoftware = map[string]int{}
	out.ByInterestedProducts = map[string]int{}

	rows, err := s.db.QueryContext(ctx, `SELECT status, role, COALESCE(current_software, ''), COALESCE(interested_products, '') FROM testers`)
	if err != nil {
		return contextutils.WrapError(err, "failed to query tester analytics")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var status, role, software, products string
		if err := rows.Scan(&status, &role, &software, &products); err != nil {
			return contextutils.WrapError(err, "failed to scan tester analytics")
		}
		out.Total++
		switch models.TesterStatus(status) {
		case models.TesterStatusPending:
			out.Pending++
		case models.TesterStatusApproved:
			out.Approved++
		case models.TesterStatusActive:
			out.Active++
		case models.TesterStatusSuspended:
			out.Suspended++
		}
		countInto(out.ByRole, role)
		countInto(out.ByCurrentSoftware, software)
		for _, p := range contextutils.SplitList(products) {
			out.ByInterestedProducts[p]++
		}
	}
	if err := rows.Err(); err != nil {
		return contextutils.WrapError(err, "failed to iterate tester analytics")
	}
	return nil
}

func (s *AnalyticsService) bugStats(ctx context.Context, out *BugAnalytics) error {
	out.BySeverity = map[string]int{}
	out.ByCategory = map[string]int{}

	rows, err := s.db.QueryContext(ctx, `SELECT status, severity, category, COUNT(*) FROM bug_reports GROUP BY status, severity, category`)
	if err != nil {
		return contextutils.WrapError(err, "failed to query bug analytics")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var status, severity, category string
		var n int
		if err := rows.Scan(&status, &severity, &category, &n); err != nil {
			return contextutils.WrapError(err, "failed to scan bug analytics")
		}
		out.Total += n
		switch {
		case slices.Contains(models.OpenBugStatuses, status):
			out.Open += n
		case status == models.BugStatusFixed:
			out.Fixed += n
		case slices.Contains(models.ClosedBugStatuses, status):
			out.Closed += n
		}
		addInto(out.BySeverity, severity, n)
		addInto(out.ByCategory, category, n)
	}
	if err := rows.Err(); err != nil {
		return contextutils.WrapError(err, "failed to iterate bug analytics")
	}

	var avg sql.NullFloat64
	err = s.db.QueryRowContext(ctx, `
		SELECT AVG(EXTRACT(EPOCH FROM (resolved_at - created_at)) / 86400.0)
		FROM bug_reports WHERE resolved_at IS NOT NULL`).Scan(&avg)
	if err != nil {
		return contextutils.WrapError(err, "failed to compute resolution time")
	}
	if avg.Valid {
		out.AvgResolutionDays = roundTenth(avg.Float64)
	}
	return nil
}

func (s *AnalyticsService) featureStats(ctx context.Context, out *FeatureAnalytics) error {
	out.ByStatus = map[string]int{}
	out.TopVoted = []TopVotedFeature{}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM feature_requests GROUP BY status`)
	if err != nil {
		return contextutils.WrapError(err, "failed to query feature analytics")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return contextutils.WrapError(err, "failed to scan feature analytics")
		}
		out.Total += n
		addInto(out.ByStatus, status, n)
	}
	if err := rows.Err(); err != nil {
		return contextutils.WrapError(err, "failed to iterate feature analytics")
	}

	top, err := s.db.QueryContext(ctx, `
		SELECT id, title, vote_count, request_number FROM feature_requests
		ORDER BY vote_count DESC, created_at DESC LIMIT 5`)
	if err != nil {
		return contextutils.WrapError(err, "failed to query top voted features")
	}
	defer func() { _ = top.Close() }()
	for top.Next() {
		var f TopVotedFeature
		if err := top.Scan(&f.ID, &f.Title, &f.VoteCount, &f.RequestNumber); err != nil {
			return contextutils.WrapError(err, "failed to scan top voted feature")
		}
		out.TopVoted = append(out.TopVoted, f)
	}
	return top.Err()
}

func (s *AnalyticsService) weeklyActivity(ctx context.Context, since time.Time, out *WeeklyActivity) error {
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM testers WHERE registered_at >= $1),
			(SELECT COUNT(*) FROM bug_reports WHERE created_at >= $1),
			(SELECT COUNT(*) FROM feature_requests WHERE created_at >= $1),
			(SELECT COUNT(*) FROM bug_reports WHERE resolved_at >= $1)`,
		since).Scan(&out.NewTesters, &out.NewBugs, &out.NewFeatures, &out.Resolved)
	if err != nil {
		return contextutils.WrapError(err, "failed to compute weekly activity")
	}
	return nil
}

// countInto increments key, bucketing blanks as "Unknown"
func countInto(m map[string]int, key string) {
	addInto(m, key, 1)
}

func addInto(m map[string]int, key string, n int) {
	if key == "" {
		key = "Unknown"
	}
	m[key] += n
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
