package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"betaportal/internal/database"
	"betaportal/internal/models"
	"betaportal/internal/observability"
	contextutils "betaportal/internal/utils"
)

// CommentService posts and lists report comments
type CommentService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewCommentService creates a new CommentService instance
func NewCommentService(db *sql.DB, logger *observability.Logger) *CommentService {
	if db == nil {
		panic("NewCommentService: db is nil")
	}
	if logger == nil {
		panic("NewCommentService: logger is nil")
	}
	return &CommentService{db: db, logger: logger}
}

// CommentTarget resolves the request's bug/feature IDs into a single target
func CommentTarget(req models.CreateCommentRequest) (models.ReportRef, error) {
	ref, err := models.RefFromIDs(req.BugReportID, req.FeatureRequestID)
	switch {
	case errors.Is(err, models.ErrBothReportTargets):
		return ref, contextutils.Validation(contextutils.ErrorCodeInvalidInput, "Provide either a bug or a feature ID, not both")
	case err != nil:
		return ref, contextutils.Validation(contextutils.ErrorCodeMissingRequired, "Content and a bug or feature ID are required")
	}
	return ref, nil
}

// Post appends a comment on target. The author name and admin flag are
// captured now and never rewritten.
func (s *CommentService) Post(ctx context.Context, author *models.Principal, target models.ReportRef, content string, asAdmin bool) (result0 *models.Comment, err error) {
	ctx, span := observability.TraceCommentFunction(ctx, "post_comment",
		observability.AttributeReportKind(string(target.Kind)),
		observability.AttributeReportID(target.ID),
		observability.AttributeTesterID(author.TesterID()),
	)
	defer observability.FinishSpan(span, &err)

	content = strings.TrimSpace(content)
	if content == "" || !target.Valid() {
		return nil, contextutils.Validation(contextutils.ErrorCodeMissingRequired, "Content and a bug or feature ID are required")
	}
	if author.TesterID() == 0 {
		return nil, contextutils.ErrTesterNotRegistered
	}
	asAdmin = asAdmin && author.IsAdmin

	if _, err := reportOwner(ctx, s.db, target); err != nil {
		return nil, err
	}

	bugID, featureID := target.Columns()
	c := &models.Comment{
		Target:     target,
		TesterID:   author.TesterID(),
		AuthorName: author.DisplayName(asAdmin),
		IsAdmin:    asAdmin,
		Content:    content,
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO comments (tester_id, bug_report_id, feature_request_id, author_name, is_admin, content)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		c.TesterID, bugID, featureID, c.AuthorName, c.IsAdmin, c.Content,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, contextutils.NotFound("Report not found")
		}
		return nil, contextutils.WrapError(err, "failed to insert comment")
	}

	s.logger.Info(ctx, "Comment posted", map[string]interface{}{
		"comment_id": c.ID,
		"target":     target.String(),
		"tester_id":  c.TesterID,
		"is_admin":   c.IsAdmin,
	})
	return c, nil
}

// List returns the comments on target, oldest first
func (s *CommentService) List(ctx context.Context, target models.ReportRef) (result0 []models.Comment, err error) {
	ctx, span := observability.TraceCommentFunction(ctx, "list_comments",
		observability.AttributeReportKind(string(target.Kind)),
		observability.AttributeReportID(target.ID),
	)
	defer observability.FinishSpan(span, &err)

	if !target.Valid() {
		return nil, contextutils.Validation(contextutils.ErrorCodeInvalidInput, "Type must be 'bug' or 'feature'")
	}
	return listComments(ctx, s.db, target)
}

func listComments(ctx context.Context, q database.Querier, target models.ReportRef) ([]models.Comment, error) {
	column := "bug_report_id"
	if target.Kind == models.ReportKindFeature {
		column = "feature_request_id"
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, tester_id, author_name, is_admin, content, created_at
		FROM comments WHERE `+column+` = $1
		ORDER BY created_at ASC, id ASC`, target.ID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query comments")
	}
	defer func() { _ = rows.Close() }()

	out := []models.Comment{}
	for rows.Next() {
		c := models.Comment{Target: target}
		if err := rows.Scan(&c.ID, &c.TesterID, &c.AuthorName, &c.IsAdmin, &c.Content, &c.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan comment")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate comments")
	}
	return out, nil
}
