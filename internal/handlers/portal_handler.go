package handlers

import (
	"net/http"

	"betaportal/internal/middleware"
	"betaportal/internal/observability"
	"betaportal/internal/serviceinterfaces"

	"github.com/gin-gonic/gin"
)

// PortalHandler serves the portal home page, the announcement feed and the public status page
type PortalHandler struct {
	dashboard     serviceinterfaces.DashboardService
	announcements serviceinterfaces.AnnouncementService
	status        serviceinterfaces.StatusService
	logger        *observability.Logger
}

// NewPortalHandler creates a PortalHandler
func NewPortalHandler(dashboard serviceinterfaces.DashboardService, announcements serviceinterfaces.AnnouncementService, status serviceinterfaces.StatusService, logger *observability.Logger) *PortalHandler {
	return &PortalHandler{dashboard: dashboard, announcements: announcements, status: status, logger: logger}
}

// Dashboard handles GET /v1/portal/dashboard. Widget failures are reported per widget with a 200.
func (h *PortalHandler) Dashboard(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_dashboard")
	defer observability.FinishSpan(span, nil)

	dashboard, err := h.dashboard.Load(ctx, middleware.GetTester(c))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// Announcements handles GET /v1/announcements
func (h *PortalHandler) Announcements(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_announcements")
	defer observability.FinishSpan(span, nil)

	list, err := h.announcements.List(ctx, 0)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Status handles GET /v1/status
func (h *PortalHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.status.Current())
}
