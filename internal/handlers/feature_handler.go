package handlers

import (
	"net/http"

	"betaportal/internal/middleware"
	"betaportal/internal/models"
	"betaportal/internal/observability"
	"betaportal/internal/serviceinterfaces"

	"github.com/gin-gonic/gin"
)

const featureNotFound = "Feature request not found"

// FeatureHandler serves feature requests and their votes
type FeatureHandler struct {
	features serviceinterfaces.FeatureService
	votes    serviceinterfaces.VoteService
	policy   serviceinterfaces.AdminPolicy
	logger   *observability.Logger
}

// NewFeatureHandler creates a FeatureHandler
func NewFeatureHandler(features serviceinterfaces.FeatureService, votes serviceinterfaces.VoteService, policy serviceinterfaces.AdminPolicy, logger *observability.Logger) *FeatureHandler {
	return &FeatureHandler{features: features, votes: votes, policy: policy, logger: logger}
}

// ListFeatures handles GET /v1/features
func (h *FeatureHandler) ListFeatures(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_features")
	defer observability.FinishSpan(span, nil)

	page, limit := ParsePagination(c, 1, DefaultPageLimit, MaxPageLimit)
	filters := ParseFilters(c, "status", "priority", "category", "search", "sort")

	list, err := h.features.List(ctx, models.ListFeaturesFilter{
		Page:     page,
		Limit:    limit,
		Status:   filters["status"],
		Priority: filters["priority"],
		Category: filters["category"],
		Search:   filters["search"],
		Sort:     filters["sort"],
	})
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateFeature handles POST /v1/features
func (h *FeatureHandler) CreateFeature(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_feature")
	defer observability.FinishSpan(span, nil)

	var req models.CreateFeatureRequest
	if !bindJSON(c, &req) {
		return
	}

	feature, err := h.features.Create(ctx, middleware.GetTester(c), req)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, feature)
}

// GetFeature handles GET /v1/features/:id
func (h *FeatureHandler) GetFeature(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_feature")
	defer observability.FinishSpan(span, nil)

	id, ok := paramID(c, "id", featureNotFound)
	if !ok {
		return
	}

	feature, err := h.features.Get(ctx, id, middleware.GetPrincipal(c, h.policy).TesterID())
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, feature)
}

// UpdateFeature handles PATCH /v1/features/:id for the owner or an admin
func (h *FeatureHandler) UpdateFeature(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_feature")
	defer observability.FinishSpan(span, nil)

	id, ok := paramID(c, "id", featureNotFound)
	if !ok {
		return
	}
	var patch models.FeatureContentPatch
	if !bindJSON(c, &patch) {
		return
	}

	feature, err := h.features.UpdateContent(ctx, id, middleware.GetPrincipal(c, h.policy), patch)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, feature)
}

// Vote handles POST /v1/features/:id/vote
func (h *FeatureHandler) Vote(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "vote_feature")
	defer observability.FinishSpan(span, nil)

	id, ok := paramID(c, "id", featureNotFound)
	if !ok {
		return
	}

	result, err := h.votes.Toggle(ctx, middleware.GetTester(c).ID, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AdminUpdateFeature handles PATCH /v1/admin/features/:id
func (h *FeatureHandler) AdminUpdateFeature(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_update_feature")
	defer observability.FinishSpan(span, nil)

	id, ok := paramID(c, "id", featureNotFound)
	if !ok {
		return
	}
	var patch models.FeatureAdminPatch
	if !bindJSON(c, &patch) {
		return
	}

	feature, err := h.features.AdminUpdate(ctx, id, patch)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	h.logger.Info(ctx, "Feature request triaged", map[string]interface{}{
		"feature_id": feature.ID,
		"number":     feature.RequestNumber,
		"status":     feature.Status,
		"admin_id":   middleware.GetExternalID(c),
	})
	c.JSON(http.StatusOK, feature)
}
