package handlers

import (
	"net/http"

	"betaportal/internal/middleware"
	"betaportal/internal/models"
	"betaportal/internal/observability"
	"betaportal/internal/serviceinterfaces"

	"github.com/gin-gonic/gin"
)

const bugNotFound = "Bug report not found"

// BugHandler serves the tester-facing bug report endpoints
type BugHandler struct {
	bugs   serviceinterfaces.BugService
	policy serviceinterfaces.AdminPolicy
	logger *observability.Logger
}

// NewBugHandler creates a BugHandler
func NewBugHandler(bugs serviceinterfaces.BugService, policy serviceinterfaces.AdminPolicy, logger *observability.Logger) *BugHandler {
	return &BugHandler{bugs: bugs, policy: policy, logger: logger}
}

// ListBugs handles GET /v1/bugs
func (h *BugHandler) ListBugs(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_bugs")
	defer observability.FinishSpan(span, nil)

	page, limit := ParsePagination(c, 1, DefaultPageLimit, MaxPageLimit)
	filters := ParseFilters(c, "status", "severity", "category", "search")

	list, err := h.bugs.List(ctx, models.ListBugsFilter{
		Page:     page,
		Limit:    limit,
		Status:   filters["status"],
		Severity: filters["severity"],
		Category: filters["category"],
		Search:   filters["search"],
	})
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateBug handles POST /v1/bugs
func (h *BugHandler) CreateBug(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_bug")
	defer observability.FinishSpan(span, nil)

	var req models.CreateBugRequest
	if !bindJSON(c, &req) {
		return
	}

	bug, err := h.bugs.Create(ctx, middleware.GetTester(c), req)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bug)
}

// GetBug handles GET /v1/bugs/:id
func (h *BugHandler) GetBug(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_bug")
	defer observability.FinishSpan(span, nil)

	id, ok := paramID(c, "id", bugNotFound)
	if !ok {
		return
	}

	bug, err := h.bugs.Get(ctx, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, bug)
}

// UpdateBug handles PATCH /v1/bugs/:id for the owner or an admin
func (h *BugHandler) UpdateBug(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_bug")
	defer observability.FinishSpan(span, nil)

	id, ok := paramID(c, "id", bugNotFound)
	if !ok {
		return
	}
	var patch models.BugContentPatch
	if !bindJSON(c, &patch) {
		return
	}

	bug, err := h.bugs.UpdateContent(ctx, id, middleware.GetPrincipal(c, h.policy), patch)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, bug)
}

// AdminUpdateBug handles PATCH /v1/admin/bugs/:id
func (h *BugHandler) AdminUpdateBug(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_update_bug")
	defer observability.FinishSpan(span, nil)

	id, ok := paramID(c, "id", bugNotFound)
	if !ok {
		return
	}
	var patch models.BugAdminPatch
	if !bindJSON(c, &patch) {
		return
	}

	bug, err := h.bugs.AdminUpdate(ctx, id, patch)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	h.logger.Info(ctx, "Bug report triaged", map[string]interface{}{
		"bug_id":   bug.ID,
		"number":   bug.ReportNumber,
		"status":   bug.Status,
		"admin_id": middleware.GetExternalID(c),
	})
	c.JSON(http.StatusOK, bug)
}
