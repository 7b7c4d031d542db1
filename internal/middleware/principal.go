// Package middleware provides principal resolution, access gates, rate limiting
// and recovery middleware for the Gin web framework.
package middleware

import (
	"errors"
	"strings"

	"betaportal/internal/config"
	"betaportal/internal/models"
	"betaportal/internal/observability"
	"betaportal/internal/serviceinterfaces"
	contextutils "betaportal/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context and session keys
const (
	// ExternalIDKey stores the identity provider subject in the session and gin context
	ExternalIDKey = "external_id"
	// TesterKey stores the resolved *models.Tester in the gin context
	TesterKey = "tester"
)

// Errors returned by token verification
var (
	ErrMissingToken      = errors.New("missing bearer token")
	ErrTokenUnverifiable = errors.New("token verification is not configured")
	ErrMissingSubject    = errors.New("token has no subject")
)

var errAuthRequired = contextutils.NewAppError(contextutils.ErrorCodeUnauthorized, contextutils.SeverityWarn, "Authentication required", "")

var errAdminRequired = contextutils.NewAppError(contextutils.ErrorCodeForbidden, contextutils.SeverityWarn, "Admin access required", "")

// PrincipalResolver turns a bearer token or an existing session into the
// caller's external ID. It never rejects a request; the Require* gates do.
type PrincipalResolver struct {
	secret   []byte
	issuer   string
	audience string
	logger   *observability.Logger
}

// NewPrincipalResolver creates a resolver verifying HS256 tokens signed with cfg.JWTSecret
func NewPrincipalResolver(cfg config.AuthConfig, logger *observability.Logger) *PrincipalResolver {
	return &PrincipalResolver{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
		logger:   logger,
	}
}

// Verify validates raw and returns its subject
func (r *PrincipalResolver) Verify(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrMissingToken
	}
	if len(r.secret) == 0 {
		return "", ErrTokenUnverifiable
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}
	if r.audience != "" {
		opts = append(opts, jwt.WithAudience(r.audience))
	}

	var claims jwt.RegisteredClaims
	if _, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return r.secret, nil
	}, opts...); err != nil {
		return "", err
	}

	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return "", ErrMissingSubject
	}
	return sub, nil
}

// Middleware resolves the principal for every request. A valid bearer token
// wins and is remembered in the session; an invalid one leaves the request
// anonymous. Without a bearer token the session subject is used.
func (r *PrincipalResolver) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)

		var externalID string
		if raw, ok := bearerToken(c.GetHeader("Authorization")); ok {
			sub, err := r.Verify(raw)
			if err != nil {
				r.logger.Warn(c.Request.Context(), "Rejected bearer token", map[string]interface{}{
					"error": err.Error(),
				})
			} else {
				externalID = sub
				if session.Get(ExternalIDKey) != sub {
					session.Set(ExternalIDKey, sub)
					if err := session.Save(); err != nil {
						r.logger.Warn(c.Request.Context(), "Failed to save session", map[string]interface{}{
							"error": err.Error(),
						})
					}
				}
			}
		} else if v, ok := session.Get(ExternalIDKey).(string); ok {
			externalID = strings.TrimSpace(v)
		}

		if externalID != "" {
			c.Set(ExternalIDKey, externalID)
			c.Request = c.Request.WithContext(contextutils.WithExternalID(c.Request.Context(), externalID))
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

// ClearPrincipal forgets the session subject
func ClearPrincipal(c *gin.Context) error {
	session := sessions.Default(c)
	session.Delete(ExternalIDKey)
	session.Clear()
	return session.Save()
}

// GetExternalID returns the resolved external ID, or "" for anonymous requests
func GetExternalID(c *gin.Context) string {
	return c.GetString(ExternalIDKey)
}

// GetTester returns the tester stored by RequireApprovedTester, RequireBoundTester
// or RequireAdminOrApprovedTester
func GetTester(c *gin.Context) *models.Tester {
	if v, ok := c.Get(TesterKey); ok {
		if t, ok := v.(*models.Tester); ok {
			return t
		}
	}
	return nil
}

// GetPrincipal assembles the caller from the resolved ID, the allow-list and any stored tester
func GetPrincipal(c *gin.Context, policy serviceinterfaces.AdminPolicy) *models.Principal {
	externalID := GetExternalID(c)
	return &models.Principal{
		ExternalID: externalID,
		IsAdmin:    policy != nil && policy.IsAdmin(externalID),
		Tester:     GetTester(c),
	}
}

func setTester(c *gin.Context, tester *models.Tester) {
	c.Set(TesterKey, tester)
	if tester != nil {
		c.Request = c.Request.WithContext(contextutils.WithTesterID(c.Request.Context(), tester.ID))
	}
}

// RequireAuth rejects anonymous requests with 401
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetExternalID(c) == "" {
			AbortWithError(c, errAuthRequired)
			return
		}
		c.Next()
	}
}

// RequireAdmin requires an authenticated principal on the admin allow-list
func RequireAdmin(policy serviceinterfaces.AdminPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		externalID := GetExternalID(c)
		if externalID == "" {
			AbortWithError(c, errAuthRequired)
			return
		}
		if policy == nil || !policy.IsAdmin(externalID) {
			AbortWithError(c, errAdminRequired)
			return
		}
		c.Next()
	}
}

// RequireApprovedTester requires a bound tester that is approved or active
func RequireApprovedTester(testers serviceinterfaces.TesterService) gin.HandlerFunc {
	return func(c *gin.Context) {
		externalID := GetExternalID(c)
		if externalID == "" {
			AbortWithError(c, errAuthRequired)
			return
		}
		tester, err := testers.RequireTester(c.Request.Context(), externalID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		setTester(c, tester)
		c.Next()
	}
}

// RequireBoundTester requires a registered tester in any status
func RequireBoundTester(testers serviceinterfaces.TesterService) gin.HandlerFunc {
	return func(c *gin.Context) {
		externalID := GetExternalID(c)
		if externalID == "" {
			AbortWithError(c, errAuthRequired)
			return
		}
		tester, err := testers.GetByExternalID(c.Request.Context(), externalID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if tester == nil {
			AbortWithError(c, contextutils.ErrTesterNotRegistered)
			return
		}
		setTester(c, tester)
		c.Next()
	}
}

// RequireAdminOrApprovedTester lets admins through regardless of tester status
// and otherwise behaves like RequireApprovedTester
func RequireAdminOrApprovedTester(policy serviceinterfaces.AdminPolicy, testers serviceinterfaces.TesterService) gin.HandlerFunc {
	approved := RequireApprovedTester(testers)
	return func(c *gin.Context) {
		externalID := GetExternalID(c)
		if externalID == "" || policy == nil || !policy.IsAdmin(externalID) {
			approved(c)
			return
		}
		tester, err := testers.GetByExternalID(c.Request.Context(), externalID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		setTester(c, tester)
		c.Next()
	}
}
