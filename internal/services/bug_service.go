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

const bugNotFound = "Bug report not found"

// BugService manages bug reports
type BugService struct {
	db        *sql.DB
	logger    *observability.Logger
	numbering *NumberingService
	testers   *TesterService
	metrics   *observability.PortalMetrics
}

// NewBugService creates a new BugService instance
func NewBugService(db *sql.DB, logger *observability.Logger, numbering *NumberingService, testers *TesterService, metrics *observability.PortalMetrics) *BugService {
	if db == nil {
		panic("NewBugService: db is nil")
	}
	if logger == nil {
		panic("NewBugService: logger is nil")
	}
	if numbering == nil || testers == nil {
		panic("NewBugService: numbering and testers are required")
	}
	return &BugService{db: db, logger: logger, numbering: numbering, testers: testers, metrics: metrics}
}

// List returns a page of bug reports, newest first
func (s *BugService) List(ctx context.Context, filter models.ListBugsFilter) (result0 *models.BugList, err error) {
	page, limit := normalizePaging(filter.Page, filter.Limit)
	ctx, span := observability.TraceReportFunction(ctx, "list_bugs",
		observability.AttributePage(page),
		observability.AttributeLimit(limit),
		observability.AttributeStatus(filter.Status),
		observability.AttributeSearch(filter.Search),
	)
	defer observability.FinishSpan(span, &err)

	var where whereClause
	if filter.Status != "" {
		where.add("b.status = $%d", filter.Status)
	}
	if filter.Severity != "" {
		where.add("b.severity = $%d", filter.Severity)
	}
	if filter.Category != "" {
		where.add("b.category = $%d", filter.Category)
	}
	if strings.TrimSpace(filter.Search) != "" {
		where.add("(b.title ILIKE $%d OR b.report_number ILIKE $%d)", likePattern(filter.Search))
	}
	if filter.TesterID > 0 {
		where.add("b.tester_id = $%d", filter.TesterID)
	}

	var total int
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bug_reports b`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, contextutils.WrapError(err, "failed to count bug reports")
	}

	limitArg := where.next(limit)
	offsetArg := where.next((page - 1) * limit)
	query := `SELECT ` + bugColumns + bugFrom + where.String() +
		` ORDER BY b.created_at DESC, b.id DESC LIMIT ` + limitArg + ` OFFSET ` + offsetArg

	rows, err := s.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list bug reports")
	}
	bugs, err := collectBugs(rows)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to scan bug reports")
	}

	return &models.BugList{Bugs: bugs, Total: total, Page: page, TotalPages: totalPages(total, limit)}, nil
}

func (s *BugService) fetch(ctx context.Context, q database.Querier, id int) (*models.BugReport, error) {
	b, err := scanBug(q.QueryRowContext(ctx, `SELECT `+bugColumns+bugFrom+` WHERE b.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.NotFound(bugNotFound)
		}
		return nil, contextutils.WrapError(err, "failed to get bug report")
	}
	return b, nil
}

// Create files a bug report for tester and links any uploaded attachments
func (s *BugService) Create(ctx context.Context, tester *models.Tester, req models.CreateBugRequest) (result0 *models.BugReport, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "create_bug",
		observability.AttributeReportKind(string(models.ReportKindBug)),
		observability.AttributeTesterID(tester.ID),
	)
	defer observability.FinishSpan(span, &err)

	title := strings.TrimSpace(req.Title)
	category := strings.TrimSpace(req.Category)
	severity := strings.TrimSpace(req.Severity)
	if title == "" || category == "" || severity == "" {
		return nil, contextutils.Validation(contextutils.ErrorCodeMissingRequired, "Title, category, and severity are required")
	}
	if !models.IsSeverity(severity) {
		return nil, contextutils.Validation(contextutils.ErrorCodeInvalidInput, "Severity must be one of: "+strings.Join(models.Severities, ", "))
	}
	for _, a := range req.AttachmentURLs {
		if strings.TrimSpace(a.URL) == "" {
			return nil, contextutils.Validation(contextutils.ErrorCodeInvalidInput, "Attachment URL is required")
		}
	}

	var id int
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		number, err := s.numbering.Next(ctx, tx, models.ReportKindBug)
		if err != nil {
			return err
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO bug_reports (report_number, tester_id, title, category, severity, status,
				steps_to_reproduce, expected_behavior, actual_behavior, browser_os, page_url, console_errors)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id`,
			number, tester.ID, title, category, severity, models.BugStatusSubmitted,
			contextutils.NilIfBlank(req.StepsToReproduce), contextutils.NilIfBlank(req.ExpectedBehavior),
			contextutils.NilIfBlank(req.ActualBehavior), contextutils.NilIfBlank(req.BrowserOS),
			contextutils.NilIfBlank(req.PageURL), contextutils.NilIfBlank(req.ConsoleErrors),
		).Scan(&id)
		if err != nil {
			return contextutils.WrapError(err, "failed to insert bug report")
		}

		for _, a := range req.AttachmentURLs {
			if err := insertAttachment(ctx, tx, models.BugRef(id), a); err != nil {
				return err
			}
		}

		result0, err = s.fetch(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.testers.TouchLastActive(ctx, tester.ID)
	s.metrics.ReportCreated(ctx, string(models.ReportKindBug))
	s.logger.Info(ctx, "Bug report created", map[string]interface{}{
		"bug_id":        result0.ID,
		"report_number": result0.ReportNumber,
		"tester_id":     tester.ID,
		"severity":      result0.Severity,
		"attachments":   len(req.AttachmentURLs),
	})
	return result0, nil
}

// Get returns a bug with its tester, attachments and comments
func (s *BugService) Get(ctx context.Context, id int) (result0 *models.BugReportDetail, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "get_bug", observability.AttributeReportID(id))
	defer observability.FinishSpan(span, &err)

	b, err := s.fetch(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	detail := &models.BugReportDetail{BugReport: *b}

	if detail.Tester, err = testerSummary(ctx, s.db, b.TesterID); err != nil {
		return nil, err
	}
	if detail.Attachments, err = listAttachments(ctx, s.db, models.BugRef(id)); err != nil {
		return nil, err
	}
	if detail.Comments, err = listComments(ctx, s.db, models.BugRef(id)); err != nil {
		return nil, err
	}
	return detail, nil
}

// UpdateContent applies an owner edit. The principal must own the report or be an admin.
func (s *BugService) UpdateContent(ctx context.Context, id int, principal *models.Principal, patch models.BugContentPatch) (result0 *models.BugReport, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "update_bug_content",
		observability.AttributeReportID(id),
		observability.AttributeTesterID(principal.TesterID()),
	)
	defer observability.FinishSpan(span, &err)

	owner, err := reportOwner(ctx, s.db, models.BugRef(id))
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
	if patch.Severity != nil && !models.IsSeverity(strings.TrimSpace(*patch.Severity)) {
		return nil, contextutils.Validation(contextutils.ErrorCodeInvalidInput, "Severity must be one of: "+strings.Join(models.Severities, ", "))
	}
	if err := sets.required("severity", patch.Severity, "Severity"); err != nil {
		return nil, err
	}
	sets.optional("steps_to_reproduce", patch.StepsToReproduce)
	sets.optional("expected_behavior", patch.ExpectedBehavior)
	sets.optional("actual_behavior", patch.ActualBehavior)
	sets.optional("browser_os", patch.BrowserOS)
	sets.optional("page_url", patch.PageURL)
	sets.optional("console_errors", patch.ConsoleErrors)

	if err := sets.apply(ctx, s.db, "bug_reports", id, bugNotFound); err != nil {
		return nil, err
	}
	return s.fetch(ctx, s.db, id)
}

// AdminUpdate applies triage fields. Setting status to fixed stamps resolved_at in the same statement.
func (s *BugService) AdminUpdate(ctx context.Context, id int, patch models.BugAdminPatch) (result0 *models.BugReport, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "update_bug_admin", observability.AttributeReportID(id))
	defer observability.FinishSpan(span, &err)

	var sets setClause
	if patch.Status != nil {
		status := strings.TrimSpace(*patch.Status)
		if !models.IsBugStatus(status) {
			return nil, contextutils.Validation(contextutils.ErrorCodeInvalidInput, fmt.Sprintf("Invalid bug status %q", status))
		}
		sets.value("status", status)
		if status == models.BugStatusFixed {
			sets.raw("resolved_at = NOW()")
		}
		span.SetAttributes(observability.AttributeStatus(status))
	}
	sets.optional("assigned_to", patch.AssignedTo)
	sets.optional("resolution", patch.Resolution)
	sets.optional("fixed_in_version", patch.FixedInVersion)

	if sets.empty() {
		return s.fetch(ctx, s.db, id)
	}
	if err := sets.apply(ctx, s.db, "bug_reports", id, bugNotFound); err != nil {
		return nil, err
	}
	return s.fetch(ctx, s.db, id)
}

// reportOwner returns the tester that filed ref, or not-found
func reportOwner(ctx context.Context, q database.Querier, ref models.ReportRef) (int, error) {
	table, missing := "bug_reports", bugNotFound
	if ref.Kind == models.ReportKindFeature {
		table, missing = "feature_requests", featureNotFound
	}
	var owner int
	err := q.QueryRowContext(ctx, `SELECT tester_id FROM `+table+` WHERE id = $1`, ref.ID).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, contextutils.NotFound(missing)
		}
		return 0, contextutils.WrapError(err, "failed to look up report owner")
	}
	return owner, nil
}

func testerSummary(ctx context.Context, q database.Querier, testerID int) (*models.TesterSummary, error) {
	var t models.TesterSummary
	var company sql.NullString
	err := q.QueryRowContext(ctx, `SELECT id, name, company FROM testers WHERE id = $1`, testerID).Scan(&t.ID, &t.Name, &company)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, contextutils.WrapError(err, "failed to load report tester")
	}
	if company.Valid {
		t.Company = &company.String
	}
	return &t, nil
}
