package handlers

import (
	"net/http"
	"strconv"

	"betaportal/internal/middleware"
	"betaportal/internal/models"
	"betaportal/internal/observability"
	"betaportal/internal/serviceinterfaces"
	"betaportal/internal/services"
	contextutils "betaportal/internal/utils"

	"github.com/gin-gonic/gin"
)

// CommentHandler serves comment threads on bugs and features
type CommentHandler struct {
	comments serviceinterfaces.CommentService
	policy   serviceinterfaces.AdminPolicy
	logger   *observability.Logger
}

// NewCommentHandler creates a CommentHandler
func NewCommentHandler(comments serviceinterfaces.CommentService, policy serviceinterfaces.AdminPolicy, logger *observability.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, policy: policy, logger: logger}
}

// PostComment handles POST /v1/comments. Allow-listed callers post as admin.
func (h *CommentHandler) PostComment(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "post_comment")
	defer observability.FinishSpan(span, nil)

	var req models.CreateCommentRequest
	if !bindJSON(c, &req) {
		return
	}
	target, err := services.CommentTarget(req)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	principal := middleware.GetPrincipal(c, h.policy)
	comment, err := h.comments.Post(ctx, principal, target, req.Content, principal.IsAdmin)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// ListComments handles GET /v1/comments/:type/:id
func (h *CommentHandler) ListComments(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_comments")
	defer observability.FinishSpan(span, nil)

	kind, ok := models.ParseReportKind(c.Param("type"))
	if !ok {
		HandleValidationError(c, contextutils.ErrorCodeInvalidInput, "Type must be 'bug' or 'feature'")
		return
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		HandleAppError(c, contextutils.NotFound("Report not found"))
		return
	}

	comments, err := h.comments.List(ctx, models.ReportRef{Kind: kind, ID: id})
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}
