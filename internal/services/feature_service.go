package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"betaportal/internal/database"
	"betaportal/internal/models"
	"betaportal/internal/observability"
	contextutils "betaportal/internal/utils"
)

const featureNotFound = "Feature request not found"

// Feature list sort keys
const (
	FeatureSortVotes  = "votes"
	FeatureSortNewest = "newest"
)

// FeatureService manages feature requests
type FeatureService struct {
	db        *sql.DB
	logger    *observability.Logger
	numbering *NumberingService
	testers   *TesterService
	metrics   *observability.PortalMetrics
}

// NewFeatureService creates a new FeatureService instance
func NewFeatureService(db *sql.DB, logger *observability.Logger, numbering *NumberingService, testers *TesterService, metrics *observability.PortalMetrics) *FeatureService {
	if db == nil {
		panic("NewFeatureService: db is nil")
	}
	if logger == nil {
		panic("NewFeatureService: logger is nil")
	}
	if numbering == nil || testers == nil {
		panic("NewFeatureService: numbering and testers are required")
	}
	return &FeatureService{db: db, logger: logger, numbering: numbering, testers: testers, metrics: metrics}
}

// List returns a page of feature requests, most voted first unless sort is "newest"
func (s *FeatureService) List(ctx context.Context, filter models.ListFeaturesFilter) (result0 *models.FeatureList, err error) {
	page, limit := normalizePaging(filter.Page, filter.Limit)
	ctx, span := observability.TraceReportFunction(ctx, "list_features",
		observability.AttributePage(page),
		observability.AttributeLimit(limit),
		observability.AttributeStatus(filter.Status),
		observability.AttributeSearch(filter.Search),
	)
	defer observability.FinishSpan(span, &err)

	var where whereClause
	if filter.Status != "" {
		where.add("f.status = $%d", filter.Status)
	}
	if filter.Priority != "" {
		where.add("f.priority = $%d", filter.Priority)
	}
	if filter.Category != "" {
		where.add("f.category = $%d", filter.Category)
	}
	if strings.TrimSpace(filter.Search) != "" {
		where.add("(f.title ILIKE $%d OR f.request_number ILIKE $%d)", likePattern(filter.Search))
	}
	if filter.TesterID > 0 {
		where.add("f.tester_id = $%d", filter.TesterID)
	}

	var total int
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feature_requests f`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, contextutils.WrapError(err, "failed to count feature requests")
	}

	order := ` ORDER BY f.vote_count DESC, f.created_at DESC, f.id DESC`
	if filter.Sort == FeatureSortNewest {
		order = ` ORDER BY f.created_at DESC, f.id DESC`
	}
	limitArg := where.next(limit)
	offsetArg := where.next((page - 1) * limit)
	query := `SELECT ` + featureColumns + featureFrom + where.String() + order + ` LIMIT ` + limitArg + ` OFFSET ` + offsetArg

	rows, err := s.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list feature requests")
	}
	features, err := collectFeatures(rows)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to scan feature requests")
	}

	return &models.FeatureList{Features: features, Total: total, Page: page, TotalPages: totalPages(total, limit)}, nil
}

func (s *FeatureService) fetch(ctx context.Context, q database.Querier, id int) (*models.FeatureRequest, error) {
	f, err := scanFeature(q.QueryRowContext(ctx, `SELECT `+featureColumns+featureFrom+` WHERE f.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.NotFound(featureNotFound)
		}
		return nil, contextutils.WrapError(err, "failed to get feature request")
	}
	return f, nil
}

// Create files a feature request for tester. Priority defaults to medium.
func (s *FeatureService) Create(ctx context.Context, tester *models.Tester, req models.CreateFeatureRequest) (result0 *models.FeatureRequest, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "create_feature",
		observability.AttributeReportKind(string(models.ReportKindFeature)),
		observability.AttributeTesterID(tester.ID),
	)
	defer observability.FinishSpan(span, &err)

	title := strings.TrimSpace(req.Title)
	category := strings.TrimSpace(req.Category)
	description := strings.TrimSpace(req.Description)
	if title == "" || category == "" || description == "" {
		return nil, contextutils.Validation(contextutils.ErrorCodeMissingRequired, "Title, category, and description are required")
	}
	priority := strings.TrimSpace(req.Priority)
	if priority == "" {
		priority = models.SeverityMedium
	}
	if !models.IsSeverity(priority) {
		return nil, contextutils.Validation(contextutils.ErrorCodeInvalidInput, "Priority must be one of: "+strings.Join(models.Severities, ", "))
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		number, err := s.numbering.Next(ctx, tx, models.ReportKindFeature)
		if err != nil {
			return err
		}

		var id int
		err = tx.QueryRowContext(ctx, `
			INSERT INTO feature_requests (request_number, tester_id, title, category, priority, status, description, use_case, vote_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0)
			RETURNING id`,
			number, tester.ID, title, category, priority, models.FeatureStatusSubmitted, description,
			contextutils.NilIfBlank(req.UseCase),
		).Scan(&id)
		if err != nil {
			return contextutils.WrapError(err, "failed to insert feature request")
		}

		result0, err = s.fetch(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.testers.TouchLastActive(ctx, tester.ID)
	s.metrics.ReportCreated(ctx, string(models.ReportKindFeature))
	s.logger.Info(ctx, "Feature request created", map[string]interface{}{
		"feature_id":     result0.ID,
		"request_number": result0.RequestNumber,
		"tester_id":      tester.ID,
		"priority":       result0.Priority,
	})
	return result0, nil
}

// Get returns a feature with its tester and comments. hasVoted reflects viewerTesterID.
func (s *FeatureService) Get(ctx context.Context, id, viewerTesterID int) (result0 *models.FeatureRequestDetail, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "get_feature",
		observability.AttributeReportID(id),
		observability.AttributeTesterID(viewerTesterID),
	)
	defer observability.FinishSpan(span, &err)

	f, err := s.fetch(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	detail := &models.FeatureRequestDetail{FeatureRequest: *f}

	if detail.Tester, err = testerSummary(ctx, s.db, f.TesterID); err != nil {
		return nil, err
	}
	if detail.Comments, err = listComments(ctx, s.db, models.FeatureRef(id)); err != nil {
		return nil, err
	}
	if viewerTesterID > 0 {
		err = s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM votes WHERE tester_id = $1 AND feature_request_id = $2)`,
			viewerTesterID, id).Scan(&detail.HasVoted)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to check vote")
		}
	}
	return detail, nil
}

// UpdateContent applies an owner edit. The principal must own the request or be an admin.
func (s *FeatureService) UpdateContent(ctx context.Context, id int, principal *models.Principal, patch models.FeatureContentPatch) (result0 *models.FeatureRequest, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "update_feature_content",
		observability.AttributeReportID(id),
		observability.AttributeTesterID(principal.TesterID()),
	)
	defer observability.FinishSpan(span, &err)

	owner, err := reportOwner(ctx, s.db, models.FeatureRef(id))
	if err != nil {
		return nil, err
	}
	if !principal.CanEdit(owner) {
		return nil, contextutils.ErrForbidden
	}

	var sets setClause
	if err := sets.required("title", patch.Title, "Title"); err != nil {
		return nil, err
	}
	if err := sets.required("category", patch.Category, "Category"); err != nil {
		return nil, err
	}
	if patch.Priority != nil && !models.IsSeverity(strings.TrimSpace(*patch.Priority)) {
		return nil, contextutils.Validation(contextutils.ErrorCodeInvalidInput, "Priority must be one of: "+strings.Join(models.Severities, ", "))
	}
	if err := sets.required("priority", patch.Priority, "Priority"); err != nil {
		return nil, err
	}
	if err := sets.required("description", patch.Description, "Description"); err != nil {
		return nil, err
	}
	sets.optional("use_case", patch.UseCase)

	if err := sets.apply(ctx, s.db, "feature_requests", id, featureNotFound); err != nil {
		return nil, err
	}
	return s.fetch(ctx, s.db, id)
}

// AdminUpdate applies triage fields
func (s *FeatureService) AdminUpdate(ctx context.Context, id int, patch models.FeatureAdminPatch) (result0 *models.FeatureRequest, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "update_feature_admin", observability.AttributeReportID(id))
	defer observability.FinishSpan(span, &err)

	var sets setClause
	if patch.Status != nil {
		status := strings.TrimSpace(*patch.Status)
		if !models.IsFeatureStatus(status) {
			return nil, contextutils.Validation(contextutils.ErrorCodeInvalidInput, fmt.Sprintf("Invalid feature status %q", status))
		}
		sets.value("status", status)
		span.SetAttributes(observability.AttributeStatus(status))
	}
	sets.optional("target_version", patch.TargetVersion)
	sets.optional("admin_response", patch.AdminResponse)

	if sets.empty() {
		return s.fetch(ctx, s.db, id)
	}
	if err := sets.apply(ctx, s.db, "feature_requests", id, featureNotFound); err != nil {
		return nil, err
	}
	return s.fetch(ctx, s.db, id)
}
