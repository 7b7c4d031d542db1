package handlers

import (
	"net/http"
	"strconv"

	"betaportal/internal/models"
	"betaportal/internal/observability"
	"betaportal/internal/serviceinterfaces"

	"github.com/gin-gonic/gin"
)

// TrackerHandler serves the combined bug and feature tracker
type TrackerHandler struct {
	tracker serviceinterfaces.TrackerService
	logger  *observability.Logger
}

// NewTrackerHandler creates a TrackerHandler
func NewTrackerHandler(tracker serviceinterfaces.TrackerService, logger *observability.Logger) *TrackerHandler {
	return &TrackerHandler{tracker: tracker, logger: logger}
}

// Query handles GET /v1/tracker?scope&search&category&status=a,b&severity=x,y&sort&page
func (h *TrackerHandler) Query(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "query_tracker")
	defer observability.FinishSpan(span, nil)

	filters := ParseFilters(c, "scope", "search", "category", "sort")
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	result, err := h.tracker.Query(ctx, models.TrackerQuery{
		Scope:      filters["scope"],
		Search:     filters["search"],
		Category:   filters["category"],
		Statuses:   ParseList(c, "status"),
		Severities: ParseList(c, "severity"),
		Sort:       filters["sort"],
		Page:       page,
	})
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
