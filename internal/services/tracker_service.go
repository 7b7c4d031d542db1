package services

import (
	"context"
	"slices"
	"strings"

	"betaportal/internal/models"
	"betaportal/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// TrackerService builds the combined bug and feature tracker view.
//
// Category and search are applied by the per-type list queries, which also
// page the results. Status and severity filters run afterwards on the merged
// page, so totalPages reflects the unfiltered per-type totals and a filtered
// page can come back short or empty.
type TrackerService struct {
	bugs     *BugService
	features *FeatureService
	logger   *observability.Logger
}

// NewTrackerService creates a new TrackerService instance
func NewTrackerService(bugs *BugService, features *FeatureService, logger *observability.Logger) *TrackerService {
	if bugs == nil || features == nil {
		panic("NewTrackerService: bug and feature services are required")
	}
	if logger == nil {
		panic("NewTrackerService: logger is nil")
	}
	return &TrackerService{bugs: bugs, features: features, logger: logger}
}

// NormalizeTrackerQuery fills defaults: scope all, sort newest, page 1
func NormalizeTrackerQuery(q models.TrackerQuery) models.TrackerQuery {
	switch q.Scope {
	case models.TrackerScopeBugs, models.TrackerScopeFeatures:
	default:
		q.Scope = models.TrackerScopeAll
	}
	switch q.Sort {
	case models.TrackerSortOldest, models.TrackerSortVotes, models.TrackerSortSeverity:
	default:
		q.Sort = models.TrackerSortNewest
	}
	if q.Page < 1 {
		q.Page = 1
	}
	q.Search = strings.TrimSpace(q.Search)
	q.Category = strings.TrimSpace(q.Category)
	if q.Category == "all" {
		q.Category = ""
	}
	return q
}

// Query fetches, merges, filters and sorts one tracker page
func (s *TrackerService) Query(ctx context.Context, q models.TrackerQuery) (result0 *models.TrackerResult, err error) {
	q = NormalizeTrackerQuery(q)
	ctx, span := observability.TraceReportFunction(ctx, "tracker_query",
		attribute.String("tracker.scope", q.Scope),
		attribute.String("tracker.sort", q.Sort),
		observability.AttributePage(q.Page),
		observability.AttributeSearch(q.Search),
	)
	defer observability.FinishSpan(span, &err)

	var rows []models.TrackerRow
	pages := 0

	if q.Scope != models.TrackerScopeFeatures {
		list, err := s.bugs.List(ctx, models.ListBugsFilter{
			Page: q.Page, Limit: models.TrackerPageSize, Category: q.Category, Search: q.Search,
		})
		if err != nil {
			return nil, err
		}
		for _, b := range list.Bugs {
			rows = append(rows, BugTrackerRow(b))
		}
		pages = max(pages, list.TotalPages)
	}

	if q.Scope != models.TrackerScopeBugs {
		list, err := s.features.List(ctx, trackerFeatureFilter(q))
		if err != nil {
			return nil, err
		}
		for _, f := range list.Features {
			rows = append(rows, FeatureTrackerRow(f))
		}
		pages = max(pages, list.TotalPages)
	}

	rows = FilterAndSort(rows, q)
	span.SetAttributes(attribute.Int("tracker.rows", len(rows)))
	return &models.TrackerResult{Rows: rows, Page: q.Page, TotalPages: max(pages, 1)}, nil
}

// trackerFeatureFilter fetches features in the feature list's default vote
// order whatever the tracker sort; FilterAndSort reorders the merged page.
func trackerFeatureFilter(q models.TrackerQuery) models.ListFeaturesFilter {
	return models.ListFeaturesFilter{
		Page: q.Page, Limit: models.TrackerPageSize, Category: q.Category, Search: q.Search, Sort: FeatureSortVotes,
	}
}

// BugTrackerRow projects a bug into a tracker row
func BugTrackerRow(b models.BugReport) models.TrackerRow {
	return models.TrackerRow{
		Type:         models.ReportKindBug,
		ID:           b.ID,
		Number:       b.ReportNumber,
		Title:        b.Title,
		Category:     b.Category,
		Status:       b.Status,
		Severity:     b.Severity,
		VoteCount:    0,
		Author:       b.TesterName,
		CommentCount: b.CommentCount,
		CreatedAt:    b.CreatedAt,
	}
}

// FeatureTrackerRow projects a feature into a tracker row
func FeatureTrackerRow(f models.FeatureRequest) models.TrackerRow {
	return models.TrackerRow{
		Type:         models.ReportKindFeature,
		ID:           f.ID,
		Number:       f.RequestNumber,
		Title:        f.Title,
		Category:     f.Category,
		Status:       f.Status,
		Severity:     f.Priority,
		VoteCount:    f.VoteCount,
		Author:       f.TesterName,
		CommentCount: f.CommentCount,
		CreatedAt:    f.CreatedAt,
	}
}

// FilterAndSort applies the status and severity filters to merged rows and
// orders them by q.Sort. The sort is stable, and the votes sort compares vote
// count only.
func FilterAndSort(rows []models.TrackerRow, q models.TrackerQuery) []models.TrackerRow {
	out := make([]models.TrackerRow, 0, len(rows))
	for _, r := range rows {
		if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, r.Status) {
			continue
		}
		if len(q.Severities) > 0 && !slices.Contains(q.Severities, r.Severity) {
			continue
		}
		out = append(out, r)
	}

	var cmp func(a, b models.TrackerRow) int
	switch q.Sort {
	case models.TrackerSortOldest:
		cmp = func(a, b models.TrackerRow) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case models.TrackerSortVotes:
		cmp = func(a, b models.TrackerRow) int { return b.VoteCount - a.VoteCount }
	case models.TrackerSortSeverity:
		cmp = func(a, b models.TrackerRow) int { return models.SeverityRank(a.Severity) - models.SeverityRank(b.Severity) }
	default:
		cmp = func(a, b models.TrackerRow) int { return b.CreatedAt.Compare(a.CreatedAt) }
	}
	slices.SortStableFunc(out, cmp)
	return out
}
