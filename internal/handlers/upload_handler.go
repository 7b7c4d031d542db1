package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"betaportal/internal/observability"
	"betaportal/internal/serviceinterfaces"
	contextutils "betaportal/internal/utils"

	"github.com/gin-gonic/gin"
)

// multipartOverhead is the slack allowed on top of the file for form framing
const multipartOverhead = 1 << 20

// UploadHandler accepts report attachments
type UploadHandler struct {
	attachments serviceinterfaces.AttachmentService
	logger      *observability.Logger
}

// NewUploadHandler creates an UploadHandler
func NewUploadHandler(attachments serviceinterfaces.AttachmentService, logger *observability.Logger) *UploadHandler {
	return &UploadHandler{attachments: attachments, logger: logger}
}

// Upload handles POST /v1/upload (multipart field "file")
func (h *UploadHandler) Upload(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "upload")
	defer observability.FinishSpan(span, nil)

	maxBytes := h.attachments.MaxBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			HandleValidationError(c, contextutils.ErrorCodePayloadTooLarge,
				fmt.Sprintf("File too large. Maximum size is %dMB.", maxBytes/(1024*1024)))
			return
		}
		HandleValidationError(c, contextutils.ErrorCodeMissingRequired, "No file provided")
		return
	}

	file, err := header.Open()
	if err != nil {
		HandleAppError(c, contextutils.WrapError(err, "failed to open upload"))
		return
	}
	defer func() { _ = file.Close() }()

	uploaded, err := h.attachments.Upload(ctx, header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, uploaded)
}
