package handlers

import (
	"net/http"

	"betaportal/internal/middleware"
	"betaportal/internal/models"
	"betaportal/internal/observability"
	"betaportal/internal/serviceinterfaces"

	"github.com/gin-gonic/gin"
)

const (
	testerNotFound       = "Beta tester not found"
	announcementNotFound = "Announcement not found"
)

// AdminHandler serves the allow-listed admin console endpoints
type AdminHandler struct {
	testers       serviceinterfaces.TesterService
	triage        serviceinterfaces.TriageService
	analytics     serviceinterfaces.AnalyticsService
	announcements serviceinterfaces.AnnouncementService
	seed          serviceinterfaces.SeedService
	logger        *observability.Logger
}

// NewAdminHandler creates an AdminHandler
func NewAdminHandler(
	testers serviceinterfaces.TesterService,
	triage serviceinterfaces.TriageService,
	analytics serviceinterfaces.AnalyticsService,
	announcements serviceinterfaces.AnnouncementService,
	seed serviceinterfaces.SeedService,
	logger *observability.Logger,
) *AdminHandler {
	return &AdminHandler{
		testers:       testers,
		triage:        triage,
		analytics:     analytics,
		announcements: announcements,
		seed:          seed,
		logger:        logger,
	}
}

// GetAnalytics handles GET /v1/admin/analytics
func (h *AdminHandler) GetAnalytics(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_analytics")
	defer observability.FinishSpan(span, nil)

	analytics, err := h.analytics.Compute(ctx)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}

// ListTesters handles GET /v1/admin/testers?status=
func (h *AdminHandler) ListTesters(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_testers")
	defer observability.FinishSpan(span, nil)

	testers, err := h.testers.List(ctx, c.Query("status"))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, testers)
}

// UpdateTester handles PATCH /v1/admin/testers/:id
func (h *AdminHandler) UpdateTester(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_tester")
	defer observability.FinishSpan(span, nil)

	id, ok := paramID(c, "id", testerNotFound)
	if !ok {
		return
	}
	var patch models.TesterAdminPatch
	if !bindJSON(c, &patch) {
		return
	}

	tester, err := h.triage.UpdateTester(ctx, id, patch)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	h.logger.Info(ctx, "Tester updated by admin", map[string]interface{}{
		"tester_id": tester.ID,
		"status":    string(tester.Status),
		"admin_id":  middleware.GetExternalID(c),
	})
	c.JSON(http.StatusOK, tester)
}

// DeleteTester handles DELETE /v1/admin/testers/:id
func (h *AdminHandler) DeleteTester(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_tester")
	defer observability.FinishSpan(span, nil)

	id, ok := paramID(c, "id", testerNotFound)
	if !ok {
		return
	}

	deleted, err := h.testers.Delete(ctx, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": deleted})
}

// BulkUpdateStatus handles POST /v1/admin/reports/bulk-status. Partial
// failures still return 200 with per-item results.
func (h *AdminHandler) BulkUpdateStatus(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "bulk_update_status")
	defer observability.FinishSpan(span, nil)

	var req models.BulkStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.triage.BulkUpdateStatus(ctx, req.Items, req.Status)
	if result == nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListAnnouncements handles GET /v1/admin/announcements
func (h *AdminHandler) ListAnnouncements(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_list_announcements")
	defer observability.FinishSpan(span, nil)

	list, err := h.announcements.List(ctx, 0)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateAnnouncement handles POST /v1/admin/announcements
func (h *AdminHandler) CreateAnnouncement(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_announcement")
	defer observability.FinishSpan(span, nil)

	var in models.AnnouncementInput
	if !bindJSON(c, &in) {
		return
	}

	a, err := h.announcements.Create(ctx, in)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// UpdateAnnouncement handles PATCH /v1/admin/announcements/:id
func (h *AdminHandler) UpdateAnnouncement(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_announcement")
	defer observability.FinishSpan(span, nil)

	id, ok := paramID(c, "id", announcementNotFound)
	if !ok {
		return
	}
	var patch models.AnnouncementPatch
	if !bindJSON(c, &patch) {
		return
	}

	a, err := h.announcements.Update(ctx, id, patch)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// DeleteAnnouncement handles DELETE /v1/admin/announcements/:id
func (h *AdminHandler) DeleteAnnouncement(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_announcement")
	defer observability.FinishSpan(span, nil)

	id, ok := paramID(c, "id", announcementNotFound)
	if !ok {
		return
	}
	if err := h.announcements.Delete(ctx, id); err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Seed handles POST /v1/admin/seed
func (h *AdminHandler) Seed(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "seed")
	defer observability.FinishSpan(span, nil)

	result, err := h.seed.Run(ctx, middleware.GetExternalID(c))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
