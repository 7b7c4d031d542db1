package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"slices"
	"strings"
	"time"

	"betaportal/internal/config"
	"betaportal/internal/database"
	"betaportal/internal/models"
	"betaportal/internal/observability"
	"betaportal/internal/services/blobstore"
	contextutils "betaportal/internal/utils"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// sniffLen is how much of an upload is read to detect its real content type
const sniffLen = 3072

// AttachmentService validates uploads and writes them to the blob store
type AttachmentService struct {
	cfg     config.UploadsConfig
	store   blobstore.Store
	logger  *observability.Logger
	metrics *observability.PortalMetrics
	now     func() time.Time
}

// NewAttachmentService creates a new AttachmentService instance
func NewAttachmentService(cfg config.UploadsConfig, store blobstore.Store, logger *observability.Logger, metrics *observability.PortalMetrics) *AttachmentService {
	if store == nil {
		panic("NewAttachmentService: store is nil")
	}
	if logger == nil {
		panic("NewAttachmentService: logger is nil")
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = config.DefaultMaxUploadBytes
	}
	if len(cfg.AllowedTypes) == 0 {
		cfg.AllowedTypes = config.DefaultAllowedUploadTypes
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = config.DefaultUploadKeyPrefix
	}
	return &AttachmentService{cfg: cfg, store: store, logger: logger, metrics: metrics, now: time.Now}
}

// MaxBytes is the largest accepted upload
func (s *AttachmentService) MaxBytes() int64 {
	return s.cfg.MaxBytes
}

func (s *AttachmentService) tooLarge() error {
	return contextutils.Validation(contextutils.ErrorCodePayloadTooLarge,
		fmt.Sprintf("File too large. Maximum size is %dMB.", s.cfg.MaxBytes/(1024*1024)))
}

func (s *AttachmentService) notAccepted() error {
	return contextutils.Validation(contextutils.ErrorCodeUnsupportedMediaType,
		"File type not accepted. Allowed: "+strings.Join(s.cfg.AllowedTypes, ", "))
}

// CheckType validates a declared content type against the allow-list and returns it without parameters
func (s *AttachmentService) CheckType(declared string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return "", s.notAccepted()
	}
	mediaType = strings.ToLower(mediaType)
	if !slices.Contains(s.cfg.AllowedTypes, mediaType) {
		return "", s.notAccepted()
	}
	return mediaType, nil
}

// Upload stores a file and returns the metadata to attach to a report. The
// declared type must be allowed and must agree with the sniffed content.
// size is the client's claim; the stream is capped independently.
func (s *AttachmentService) Upload(ctx context.Context, fileName, declaredType string, size int64, r io.Reader) (result0 *models.UploadedFile, err error) {
	ctx, span := observability.TraceAttachmentFunction(ctx, "upload",
		attribute.String("upload.declared_type", declaredType),
		attribute.Int64("upload.size", size),
	)
	defer observability.FinishSpan(span, &err)

	if r == nil {
		return nil, contextutils.Validation(contextutils.ErrorCodeMissingRequired, "No file provided")
	}
	if size > s.cfg.MaxBytes {
		return nil, s.tooLarge()
	}
	contentType, err := s.CheckType(declaredType)
	if err != nil {
		return nil, err
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, contextutils.WrapError(err, "failed to read upload")
	}
	head = head[:n]
	if n == 0 {
		return nil, contextutils.Validation(contextutils.ErrorCodeMissingRequired, "No file provided")
	}

	detected := mimetype.Detect(head)
	if !detected.Is(contentType) {
		s.logger.Warn(ctx, "Upload content does not match declared type", map[string]interface{}{
			"declared": contentType,
			"detected": detected.String(),
		})
		return nil, s.notAccepted()
	}

	name := strings.TrimSpace(fileName)
	if name == "" {
		name = "file" + detected.Extension()
	}
	key := fmt.Sprintf("%s/%d-%s-%s", strings.Trim(s.cfg.KeyPrefix, "/"), s.now().UnixMilli(),
		uuid.NewString()[:8], contextutils.SanitizeFileName(name))

	body := &cappedReader{r: io.MultiReader(bytes.NewReader(head), r), remaining: s.cfg.MaxBytes, tooLarge: s.tooLarge}
	url, err := s.store.Put(ctx, key, contentType, body)
	if err != nil {
		if body.exceeded {
			return nil, s.tooLarge()
		}
		return nil, contextutils.WrapError(err, "failed to store upload")
	}

	s.metrics.AttachmentUploaded(ctx, contentType, body.read)
	s.logger.Info(ctx, "File uploaded", map[string]interface{}{
		"key":          key,
		"content_type": contentType,
		"size":         body.read,
	})
	return &models.UploadedFile{URL: url, FileName: name, FileSize: body.read, MimeType: contentType}, nil
}

// cappedReader fails once more than remaining bytes have been read
type cappedReader struct {
	r         io.Reader
	remaining int64
	read      int64
	exceeded  bool
	tooLarge  func() error
}

func (c *cappedReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += int64(n)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		c.exceeded = true
		return n, c.tooLarge()
	}
	return n, err
}

func insertAttachment(ctx context.Context, q database.Querier, target models.ReportRef, file models.UploadedFile) error {
	bugID, featureID := target.Columns()
	name := strings.TrimSpace(file.FileName)
	if name == "" {
		name = "file"
	}
	mimeType := file.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO attachments (bug_report_id, feature_request_id, file_name, file_url, file_size, mime_type)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		bugID, featureID, name, strings.TrimSpace(file.URL), file.FileSize, mimeType)
	if err != nil {
		return contextutils.WrapError(err, "failed to link attachment")
	}
	return nil
}

func listAttachments(ctx context.Context, q database.Querier, target models.ReportRef) ([]models.Attachment, error) {
	column := "bug_report_id"
	if target.Kind == models.ReportKindFeature {
		column = "feature_request_id"
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, file_name, file_url, file_size, mime_type, created_at
		FROM attachments WHERE `+column+` = $1
		ORDER BY created_at ASC, id ASC`, target.ID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query attachments")
	}
	defer func() { _ = rows.Close() }()

	out := []models.Attachment{}
	for rows.Next() {
		a := models.Attachment{Target: target}
		if err := rows.Scan(&a.ID, &a.FileName, &a.FileURL, &a.FileSize, &a.MimeType, &a.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan attachment")
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate attachments")
	}
	return out, nil
}
