package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"betaportal/internal/config"
	"betaportal/internal/middleware"
	"betaportal/internal/observability"
	"betaportal/internal/serviceinterfaces"
	"betaportal/internal/services"
	"betaportal/internal/version"
)

// ServiceName identifies the API in traces and the route index
const ServiceName = "beta-portal"

// Services holds everything the HTTP layer calls into
type Services struct {
	Policy        *services.AccessPolicy
	Testers       serviceinterfaces.TesterService
	Bugs          serviceinterfaces.BugService
	Features      serviceinterfaces.FeatureService
	Votes         serviceinterfaces.VoteService
	Comments      serviceinterfaces.CommentService
	Attachments   serviceinterfaces.AttachmentService
	Tracker       serviceinterfaces.TrackerService
	Triage        serviceinterfaces.TriageService
	Analytics     serviceinterfaces.AnalyticsService
	Announcements serviceinterfaces.AnnouncementService
	Dashboard     serviceinterfaces.DashboardService
	Status        serviceinterfaces.StatusService
	Seed          serviceinterfaces.SeedService

	// RateLimiter may be nil, which disables limiting
	RateLimiter *middleware.RateLimiter
}

// requestLogger logs one line per request at a level chosen by status
func requestLogger(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		statusCode := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.path":        path,
			"http.status_code": statusCode,
			"http.latency_ms":  time.Since(start).Milliseconds(),
			"http.client_ip":   c.ClientIP(),
			"http.user_agent":  c.Request.UserAgent(),
		}
		if id := middleware.GetExternalID(c); id != "" {
			fields["external_id"] = id
		}
		var lastErr error
		if last := c.Errors.Last(); last != nil {
			lastErr = last.Err
			fields["http.error"] = c.Errors.String()
		}

		if statusCode >= 500 {
			fields["http.error_type"] = "server_error"
			logger.Error(c.Request.Context(), "HTTP request failed", lastErr, fields)
		} else if statusCode >= 400 {
			fields["http.error_type"] = "client_error"
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		} else {
			logger.Info(c.Request.Context(), "HTTP request", fields)
		}
	}
}

// NewRouter creates the gin engine with all middleware and routes
func NewRouter(cfg *config.Config, svc Services, logger *observability.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorRecoveryMiddleware(logger))
	router.Use(requestLogger(logger))

	// Health check endpoint (defined before any middleware)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": ServiceName})
	})

	// OpenTelemetry tracing and context propagation
	router.Use(observability.GinMiddleware(ServiceName)...)

	router.RedirectTrailingSlash = false

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With", middleware.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader, "Retry-After", "X-RateLimit-Limit"}
	router.Use(cors.New(corsConfig))

	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	sessionOpts := sessions.Options{
		Path:     config.SessionPath,
		MaxAge:   int(config.SessionMaxAge.Seconds()),
		HttpOnly: config.SessionHTTPOnly,
		Secure:   config.SessionSecure,
	}
	if cfg.Server.Debug {
		sessionOpts.SameSite = http.SameSiteDefaultMode
	} else {
		sessionOpts.SameSite = http.SameSiteLaxMode
		sessionOpts.Secure = true
	}
	store.Options(sessionOpts)
	router.Use(sessions.Sessions(config.SessionName, store))

	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	secureConfig.IsDevelopment = cfg.Server.Debug
	router.Use(secure.New(secureConfig))

	resolver := middleware.NewPrincipalResolver(cfg.Auth, logger)
	router.Use(resolver.Middleware())

	if cfg.Uploads.Backend == "local" && strings.HasPrefix(cfg.Uploads.PublicBaseURL, "/") {
		router.Static(cfg.Uploads.PublicBaseURL, cfg.Uploads.LocalDir)
	}

	testerHandler := NewTesterHandler(svc.Testers, svc.Policy, logger)
	bugHandler := NewBugHandler(svc.Bugs, svc.Policy, logger)
	featureHandler := NewFeatureHandler(svc.Features, svc.Votes, svc.Policy, logger)
	commentHandler := NewCommentHandler(svc.Comments, svc.Policy, logger)
	uploadHandler := NewUploadHandler(svc.Attachments, logger)
	trackerHandler := NewTrackerHandler(svc.Tracker, logger)
	portalHandler := NewPortalHandler(svc.Dashboard, svc.Announcements, svc.Status, logger)
	adminHandler := NewAdminHandler(svc.Testers, svc.Triage, svc.Analytics, svc.Announcements, svc.Seed, logger)

	requireAuth := middleware.RequireAuth()
	approved := middleware.RequireApprovedTester(svc.Testers)
	bound := middleware.RequireBoundTester(svc.Testers)
	adminOrApproved := middleware.RequireAdminOrApprovedTester(svc.Policy, svc.Testers)
	writeLimit := middleware.RateLimit(svc.RateLimiter, "write")

	v1 := router.Group("/v1")
	{
		// Public
		v1.GET("/status", portalHandler.Status)
		v1.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, version.Info(ServiceName))
		})
		v1.GET("/portal/access", testerHandler.PortalAccess)

		// Authenticated, tester record not required
		v1.POST("/register", requireAuth, middleware.RateLimit(svc.RateLimiter, "register"), testerHandler.Register)
		v1.GET("/admin/access", requireAuth, testerHandler.AdminAccess)
		v1.POST("/auth/logout", testerHandler.Logout)

		// Bound tester in any status
		v1.GET("/me", requireAuth, bound, testerHandler.GetMe)
		v1.PATCH("/me", requireAuth, bound, testerHandler.UpdateMe)
		v1.GET("/my-reports", requireAuth, bound, testerHandler.MyReports)

		// Approved tester
		v1.GET("/bugs", approved, bugHandler.ListBugs)
		v1.POST("/bugs", approved, writeLimit, bugHandler.CreateBug)
		v1.GET("/bugs/:id", approved, bugHandler.GetBug)
		v1.PATCH("/bugs/:id", adminOrApproved, bugHandler.UpdateBug)

		v1.GET("/features", approved, featureHandler.ListFeatures)
		v1.POST("/features", approved, writeLimit, featureHandler.CreateFeature)
		v1.GET("/features/:id", approved, featureHandler.GetFeature)
		v1.PATCH("/features/:id", adminOrApproved, featureHandler.UpdateFeature)
		v1.POST("/features/:id/vote", approved, featureHandler.Vote)

		v1.POST("/comments", approved, writeLimit, commentHandler.PostComment)
		v1.GET("/comments/:type/:id", approved, commentHandler.ListComments)

		v1.POST("/upload", approved, middleware.RateLimit(svc.RateLimiter, "upload"), uploadHandler.Upload)

		v1.GET("/announcements", approved, portalHandler.Announcements)
		v1.GET("/tracker", approved, trackerHandler.Query)
		v1.GET("/portal/dashboard", approved, portalHandler.Dashboard)

		// Admin endpoints, independent of tester status
		admin := v1.Group("/admin")
		admin.Use(middleware.RequireAdmin(svc.Policy))
		{
			admin.GET("/analytics", adminHandler.GetAnalytics)

			admin.GET("/testers", adminHandler.ListTesters)
			admin.PATCH("/testers/:id", adminHandler.UpdateTester)
			admin.DELETE("/testers/:id", adminHandler.DeleteTester)

			admin.PATCH("/bugs/:id", bugHandler.AdminUpdateBug)
			admin.PATCH("/features/:id", featureHandler.AdminUpdateFeature)
			admin.POST("/reports/bulk-status", adminHandler.BulkUpdateStatus)

			admin.GET("/announcements", adminHandler.ListAnnouncements)
			admin.POST("/announcements", adminHandler.CreateAnnouncement)
			admin.PATCH("/announcements/:id", adminHandler.UpdateAnnouncement)
			admin.DELETE("/announcements/:id", adminHandler.DeleteAnnouncement)

			admin.POST("/seed", adminHandler.Seed)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	routeListing := NewRouteListingHandler(ServiceName)
	routeListing.CollectRoutes(router)
	router.GET("/", routeListing.GetRouteListingJSON)

	return router
}
