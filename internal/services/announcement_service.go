package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"betaportal/internal/models"
	"betaportal/internal/observability"
	contextutils "betaportal/internal/utils"
)

const announcementNotFound = "Announcement not found"

const announcementColumns = `id, title, content, type, version, is_pinned, published_at, created_at, updated_at`

// AnnouncementService manages the release notes feed
type AnnouncementService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewAnnouncementService creates a new AnnouncementService instance
func NewAnnouncementService(db *sql.DB, logger *observability.Logger) *AnnouncementService {
	if db == nil {
		panic("NewAnnouncementService: db is nil")
	}
	if logger == nil {
		panic("NewAnnouncementService: logger is nil")
	}
	return &AnnouncementService{db: db, logger: logger}
}

func scanAnnouncement(row rowScanner) (*models.Announcement, error) {
	var a models.Announcement
	if err := row.Scan(&a.ID, &a.Title, &a.Content, &a.Type, &a.Version, &a.IsPinned, &a.PublishedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns announcements pinned first, then newest published. limit <= 0 returns all.
func (s *AnnouncementService) List(ctx context.Context, limit int) (result0 []models.Announcement, err error) {
	ctx, span := observability.TraceFunction(ctx, "announcement", "list_announcements", observability.AttributeLimit(limit))
	defer observability.FinishSpan(span, &err)

	query := `SELECT ` + announcementColumns + ` FROM announcements ORDER BY is_pinned DESC, published_at DESC, id DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list announcements")
	}
	defer func() { _ = rows.Close() }()

	out := []models.Announcement{}
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan announcement")
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate announcements")
	}
	return out, nil
}

// Latest returns the most recently published announcements regardless of pinning
func (s *AnnouncementService) Latest(ctx context.Context, limit int) (result0 []models.Announcement, err error) {
	ctx, span := observability.TraceFunction(ctx, "announcement", "latest_announcements", observability.AttributeLimit(limit))
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `SELECT `+announcementColumns+` FROM announcements ORDER BY published_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list announcements")
	}
	defer func() { _ = rows.Close() }()

	out := []models.Announcement{}
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan announcement")
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func validAnnouncementType(t string) error {
	if !models.IsAnnouncementType(t) {
		return contextutils.Validation(contextutils.ErrorCodeInvalidInput, "Type must be one of: "+strings.Join(models.AnnouncementTypes, ", "))
	}
	return nil
}

// Create publishes a new announcement
func (s *AnnouncementService) Create(ctx context.Context, in models.AnnouncementInput) (result0 *models.Announcement, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "create_announcement")
	defer observability.FinishSpan(span, &err)

	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	kind := strings.TrimSpace(in.Type)
	if title == "" || content == "" || kind == "" {
		return nil, contextutils.Validation(contextutils.ErrorCodeMissingRequired, "Title, content, and type are required")
	}
	if err := validAnnouncementType(kind); err != nil {
		return nil, err
	}
	published := time.Now()
	if in.PublishedAt != nil {
		published = *in.PublishedAt
	}

	a, err := scanAnnouncement(s.db.QueryRowContext(ctx, `
		INSERT INTO announcements (title, content, type, version, is_pinned, published_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+announcementColumns,
		title, content, kind, contextutils.NilIfBlank(in.Version), in.IsPinned, published))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to insert announcement")
	}

	s.logger.Info(ctx, "Announcement published", map[string]interface{}{
		"announcement_id": a.ID,
		"type":            a.Type,
		"pinned":          a.IsPinned,
	})
	return a, nil
}

// Update applies a partial change to an announcement
func (s *AnnouncementService) Update(ctx context.Context, id int, patch models.AnnouncementPatch) (result0 *models.Announcement, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "update_announcement", observability.AttributeReportID(id))
	defer observability.FinishSpan(span, &err)

	var sets setClause
	if err := sets.required("title", patch.Title, "Title"); err != nil {
		return nil, err
	}
	if err := sets.required("content", patch.Content, "Content"); err != nil {
		return nil, err
	}
	if patch.Type != nil {
		if err := validAnnouncementType(strings.TrimSpace(*patch.Type)); err != nil {
			return nil, err
		}
		sets.value("type", strings.TrimSpace(*patch.Type))
	}
	sets.optional("version", patch.Version)
	if patch.IsPinned != nil {
		sets.value("is_pinned", *patch.IsPinned)
	}
	if patch.PublishedAt != nil {
		sets.value("published_at", *patch.PublishedAt)
	}

	if !sets.empty() {
		if err := sets.apply(ctx, s.db, "announcements", id, announcementNotFound); err != nil {
			return nil, err
		}
	}

	a, err := scanAnnouncement(s.db.QueryRowContext(ctx, `SELECT `+announcementColumns+` FROM announcements WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.NotFound(announcementNotFound)
		}
		return nil, contextutils.WrapError(err, "failed to get announcement")
	}
	return a, nil
}

// Delete removes an announcement
func (s *AnnouncementService) Delete(ctx context.Context, id int) (err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "delete_announcement", observability.AttributeReportID(id))
	defer observability.FinishSpan(span, &err)

	res, err := s.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete announcement")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to read affected rows")
	}
	if n == 0 {
		return contextutils.NotFound(announcementNotFound)
	}
	return nil
}
