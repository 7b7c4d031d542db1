package handlers

import (
	"net/http"

	"betaportal/internal/middleware"
	"betaportal/internal/models"
	"betaportal/internal/observability"
	"betaportal/internal/serviceinterfaces"
	"betaportal/internal/services"

	"github.com/gin-gonic/gin"
)

// TesterHandler serves registration, the access gate and the caller's profile
type TesterHandler struct {
	testers serviceinterfaces.TesterService
	policy  *services.AccessPolicy
	logger  *observability.Logger
}

// NewTesterHandler creates a TesterHandler
func NewTesterHandler(testers serviceinterfaces.TesterService, policy *services.AccessPolicy, logger *observability.Logger) *TesterHandler {
	return &TesterHandler{testers: testers, policy: policy, logger: logger}
}

// Register handles POST /v1/register
func (h *TesterHandler) Register(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "register")
	defer observability.FinishSpan(span, nil)

	var req models.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	tester, err := h.testers.Register(ctx, middleware.GetExternalID(c), req)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Application submitted successfully",
		"id":      tester.ID,
	})
}

// PortalAccess handles GET /v1/portal/access. Anonymous callers get the sign-in screen.
func (h *TesterHandler) PortalAccess(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "portal_access")
	defer observability.FinishSpan(span, nil)

	externalID := middleware.GetExternalID(c)
	var tester *models.Tester
	if externalID != "" {
		var err error
		tester, err = h.testers.GetByExternalID(ctx, externalID)
		if err != nil {
			HandleAppError(c, err)
			return
		}
	}

	decision := services.Decide(h.policy, externalID, tester)
	if decision.State == services.AccessApproved {
		h.testers.TouchLastActive(ctx, tester.ID)
	}
	c.JSON(http.StatusOK, decision)
}

// AdminAccess handles GET /v1/admin/access
func (h *TesterHandler) AdminAccess(c *gin.Context) {
	if h.policy.IsAdmin(middleware.GetExternalID(c)) {
		c.JSON(http.StatusOK, gin.H{"isAdmin": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"isAdmin": false, "redirect": "/portal"})
}

// Logout handles POST /v1/auth/logout
func (h *TesterHandler) Logout(c *gin.Context) {
	if err := middleware.ClearPrincipal(c); err != nil {
		h.logger.Warn(c.Request.Context(), "Failed to clear session", map[string]interface{}{
			"error": err.Error(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetMe handles GET /v1/me
func (h *TesterHandler) GetMe(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_me")
	defer observability.FinishSpan(span, nil)

	me, err := h.testers.GetMe(ctx, middleware.GetExternalID(c))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, me)
}

// UpdateMe handles PATCH /v1/me
func (h *TesterHandler) UpdateMe(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_me")
	defer observability.FinishSpan(span, nil)

	var patch models.ProfilePatch
	if !bindJSON(c, &patch) {
		return
	}

	tester, err := h.testers.UpdateMe(ctx, middleware.GetExternalID(c), patch)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, tester)
}

// MyReports handles GET /v1/my-reports
func (h *TesterHandler) MyReports(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "my_reports")
	defer observability.FinishSpan(span, nil)

	reports, err := h.testers.MyReports(ctx, middleware.GetTester(c).ID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}
