// Package di provides dependency injection container for managing service lifecycle and dependencies.
package di

import (
	"context"
	"database/sql"
	"sync"

	"betaportal/internal/config"
	"betaportal/internal/database"
	"betaportal/internal/handlers"
	"betaportal/internal/middleware"
	"betaportal/internal/observability"
	"betaportal/internal/services"
	"betaportal/internal/services/blobstore"
	"betaportal/internal/services/mailer"
	contextutils "betaportal/internal/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
)

// Service names used as container keys
const (
	serviceTester       = "tester"
	serviceBug          = "bug"
	serviceFeature      = "feature"
	serviceVote         = "vote"
	serviceComment      = "comment"
	serviceAttachment   = "attachment"
	serviceTracker      = "tracker"
	serviceTriage       = "triage"
	serviceAnalytics    = "analytics"
	serviceAnnouncement = "announcement"
	serviceDashboard    = "dashboard"
	serviceStatus       = "status"
	serviceSeed         = "seed"
	serviceEmail        = "email"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetTesterService() (*services.TesterService, error)
	GetVoteService() (*services.VoteService, error)
	GetTriageService() (*services.TriageService, error)
	GetSeedService() (*services.SeedService, error)
	GetEmailService() (mailer.Mailer, error)
	RouterServices() (handlers.Services, error)
	GetAccessPolicy() *services.AccessPolicy
	GetDatabase() *sql.DB
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg           *config.Config
	logger        *observability.Logger
	dbManager     *database.Manager
	db            *sql.DB
	redis         *redis.Client
	policy        *services.AccessPolicy
	rateLimiter   *middleware.RateLimiter
	services      map[string]interface{}
	mu            sync.RWMutex
	shutdownFuncs []func(context.Context) error
}

// NewServiceContainer creates a new dependency injection container
func NewServiceContainer(cfg *config.Config, logger *observability.Logger) *ServiceContainer {
	return &ServiceContainer{
		cfg:      cfg,
		logger:   logger,
		services: make(map[string]interface{}),
	}
}

// Initialize opens the database, applies migrations and wires every service
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.dbManager = database.NewManager(sc.logger)
	db, err := sc.dbManager.InitDB(sc.cfg.Database)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to initialize database")
	}
	sc.db = db
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		return db.Close()
	})

	if err := sc.initializeServices(ctx); err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to initialize services")
	}

	if err := sc.startupServices(ctx); err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to startup services")
	}

	if !sc.cfg.IsAdminListConfigured() {
		sc.logger.Warn(ctx, "No admin user IDs configured; admin endpoints will reject every caller", nil)
	}

	return nil
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetTesterService returns the tester service
func (sc *ServiceContainer) GetTesterService() (*services.TesterService, error) {
	return GetServiceAs[*services.TesterService](sc, serviceTester)
}

// GetVoteService returns the vote service
func (sc *ServiceContainer) GetVoteService() (*services.VoteService, error) {
	return GetServiceAs[*services.VoteService](sc, serviceVote)
}

// GetTriageService returns the triage service
func (sc *ServiceContainer) GetTriageService() (*services.TriageService, error) {
	return GetServiceAs[*services.TriageService](sc, serviceTriage)
}

// GetSeedService returns the seed service
func (sc *ServiceContainer) GetSeedService() (*services.SeedService, error) {
	return GetServiceAs[*services.SeedService](sc, serviceSeed)
}

// GetEmailService returns the email service
func (sc *ServiceContainer) GetEmailService() (mailer.Mailer, error) {
	return GetServiceAs[mailer.Mailer](sc, serviceEmail)
}

// RouterServices collects everything handlers.NewRouter needs
func (sc *ServiceContainer) RouterServices() (handlers.Services, error) {
	var out handlers.Services
	out.Policy = sc.policy
	out.RateLimiter = sc.rateLimiter

	var errs error
	get := func(name string, assign func(interface{}) bool) {
		svc, err := sc.GetService(name)
		if err != nil {
			errs = multierr.Append(errs, err)
			return
		}
		if !assign(svc) {
			errs = multierr.Append(errs, contextutils.ErrorWithContextf("service %s has incorrect type", name))
		}
	}

	get(serviceTester, func(v interface{}) (ok bool) { out.Testers, ok = v.(*services.TesterService); return })
	get(serviceBug, func(v interface{}) (ok bool) { out.Bugs, ok = v.(*services.BugService); return })
	get(serviceFeature, func(v interface{}) (ok bool) { out.Features, ok = v.(*services.FeatureService); return })
	get(serviceVote, func(v interface{}) (ok bool) { out.Votes, ok = v.(*services.VoteService); return })
	get(serviceComment, func(v interface{}) (ok bool) { out.Comments, ok = v.(*services.CommentService); return })
	get(serviceAttachment, func(v interface{}) (ok bool) { out.Attachments, ok = v.(*services.AttachmentService); return })
	get(serviceTracker, func(v interface{}) (ok bool) { out.Tracker, ok = v.(*services.TrackerService); return })
	get(serviceTriage, func(v interface{}) (ok bool) { out.Triage, ok = v.(*services.TriageService); return })
	get(serviceAnalytics, func(v interface{}) (ok bool) { out.Analytics, ok = v.(*services.AnalyticsService); return })
	get(serviceAnnouncement, func(v interface{}) (ok bool) { out.Announcements, ok = v.(*services.AnnouncementService); return })
	get(serviceDashboard, func(v interface{}) (ok bool) { out.Dashboard, ok = v.(*services.DashboardService); return })
	get(serviceStatus, func(v interface{}) (ok bool) { out.Status, ok = v.(*services.StatusService); return })
	get(serviceSeed, func(v interface{}) (ok bool) { out.Seed, ok = v.(*services.SeedService); return })

	return out, errs
}

// GetAccessPolicy returns the admin allow-list policy
func (sc *ServiceContainer) GetAccessPolicy() *services.AccessPolicy {
	return sc.policy
}

// GetDatabase returns the database instance
func (sc *ServiceContainer) GetDatabase() *sql.DB {
	return sc.db
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.cleanup(ctx)
}

// startupServices starts all services that implement the Lifecycle interface
func (sc *ServiceContainer) startupServices(ctx context.Context) error {
	for name, service := range sc.services {
		if lifecycleService, ok := service.(interface{ Startup(context.Context) error }); ok {
			sc.logger.Info(ctx, "Starting service", map[string]interface{}{"service": name})
			if err := lifecycleService.Startup(ctx); err != nil {
				return contextutils.WrapErrorf(err, "failed to startup service %s", name)
			}
		}
	}
	return nil
}

// cleanup handles shutdown of all services
func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errs error

	for name, service := range sc.services {
		if lifecycleService, ok := service.(interface{ Shutdown(context.Context) error }); ok {
			if err := lifecycleService.Shutdown(ctx); err != nil {
				sc.logger.Error(ctx, "Failed to shutdown service", err, map[string]interface{}{"service": name})
				errs = multierr.Append(errs, contextutils.WrapErrorf(err, "service %s shutdown failed", name))
			}
		}
	}

	// reverse order of initialization
	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, sc.shutdownFuncs[i](ctx))
	}
	sc.shutdownFuncs = nil

	return errs
}

// initializeServices sets up all service dependencies
func (sc *ServiceContainer) initializeServices(ctx context.Context) error {
	metrics, err := observability.NewPortalMetrics()
	if err != nil {
		sc.logger.Warn(ctx, "Portal metrics unavailable", map[string]interface{}{"error": err.Error()})
	}

	store, err := blobstore.New(sc.cfg.Uploads, sc.logger)
	if err != nil {
		return contextutils.WrapError(err, "failed to create upload store")
	}

	sc.policy = services.NewAccessPolicy(sc.cfg.Access.AdminUserIDs)
	sc.initializeRedis(ctx)

	numbering := services.NewNumberingService(sc.logger)
	email := services.CreateEmailService(sc.cfg, sc.logger)
	sc.services[serviceEmail] = email

	testers := services.NewTesterService(sc.db, sc.logger, metrics)
	sc.services[serviceTester] = testers

	bugs := services.NewBugService(sc.db, sc.logger, numbering, testers, metrics)
	sc.services[serviceBug] = bugs

	features := services.NewFeatureService(sc.db, sc.logger, numbering, testers, metrics)
	sc.services[serviceFeature] = features

	sc.services[serviceVote] = services.NewVoteService(sc.db, sc.logger, metrics)
	sc.services[serviceComment] = services.NewCommentService(sc.db, sc.logger)
	sc.services[serviceAttachment] = services.NewAttachmentService(sc.cfg.Uploads, store, sc.logger, metrics)
	sc.services[serviceTracker] = services.NewTrackerService(bugs, features, sc.logger)
	sc.services[serviceTriage] = services.NewTriageService(bugs, features, testers, email, sc.logger, metrics)
	sc.services[serviceAnalytics] = services.NewAnalyticsService(sc.db, sc.logger)

	announcements := services.NewAnnouncementService(sc.db, sc.logger)
	sc.services[serviceAnnouncement] = announcements
	sc.services[serviceDashboard] = services.NewDashboardService(sc.db, bugs, features, announcements, sc.logger)
	sc.services[serviceStatus] = services.NewStatusService()
	sc.services[serviceSeed] = services.NewSeedService(sc.db, sc.logger, numbering, sc.policy)

	return nil
}

// initializeRedis connects the rate limiter store. Redis is optional: when it
// is disabled or unreachable the limiter still fails open per request.
func (sc *ServiceContainer) initializeRedis(ctx context.Context) {
	if !sc.cfg.Redis.Enabled || !sc.cfg.RateLimit.Enabled {
		sc.logger.Info(ctx, "Rate limiting disabled", map[string]interface{}{
			"redis_enabled":      sc.cfg.Redis.Enabled,
			"rate_limit_enabled": sc.cfg.RateLimit.Enabled,
		})
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:     sc.cfg.Redis.Addr,
		Password: sc.cfg.Redis.Password,
		DB:       sc.cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		sc.logger.Warn(ctx, "Redis ping failed; rate limiter will fail open until it recovers", map[string]interface{}{
			"addr":  sc.cfg.Redis.Addr,
			"error": err.Error(),
		})
	}

	sc.redis = client
	sc.rateLimiter = middleware.NewRateLimiter(client, sc.cfg.RateLimit, sc.logger)
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		return client.Close()
	})
}
