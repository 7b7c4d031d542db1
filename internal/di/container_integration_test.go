//go:build integration
// +build integration

package di

import (
	"context"
	"os"
	"testing"
	"time"

	"betaportal/internal/config"
	"betaportal/internal/observability"
	"betaportal/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ServiceContainerIntegrationTestSuite initializes a container against a real database
type ServiceContainerIntegrationTestSuite struct {
	suite.Suite
	Config    *config.Config
	Logger    *observability.Logger
	Container *ServiceContainer
}

func TestServiceContainerIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceContainerIntegrationTestSuite))
}

func (suite *ServiceContainerIntegrationTestSuite) SetupSuite() {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		suite.T().Skip("TEST_DATABASE_URL not set")
	}

	cfg := config.Default()
	cfg.IsTest = true
	cfg.Database.URL = url
	cfg.Uploads.LocalDir = suite.T().TempDir()
	cfg.Access.AdminUserIDs = []string{"user_admin"}
	suite.Config = cfg
	suite.Logger = observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})

	suite.Container = NewServiceContainer(cfg, suite.Logger)
	require.NoError(suite.T(), suite.Container.Initialize(context.Background()))
}

func (suite *ServiceContainerIntegrationTestSuite) TearDownSuite() {
	if suite.Container != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = suite.Container.Shutdown(ctx)
	}
}

func (suite *ServiceContainerIntegrationTestSuite) TestAccessors() {
	assert.Equal(suite.T(), suite.Config, suite.Container.GetConfig())
	assert.Equal(suite.T(), suite.Logger, suite.Container.GetLogger())
	require.NotNil(suite.T(), suite.Container.GetDatabase())
	assert.NoError(suite.T(), suite.Container.GetDatabase().Ping())
	assert.True(suite.T(), suite.Container.GetAccessPolicy().IsAdmin("user_admin"))
}

func (suite *ServiceContainerIntegrationTestSuite) TestTypedGetters() {
	testers, err := suite.Container.GetTesterService()
	require.NoError(suite.T(), err)
	assert.NotNil(suite.T(), testers)

	votes, err := suite.Container.GetVoteService()
	require.NoError(suite.T(), err)
	assert.NotNil(suite.T(), votes)

	triage, err := suite.Container.GetTriageService()
	require.NoError(suite.T(), err)
	assert.NotNil(suite.T(), triage)

	seed, err := suite.Container.GetSeedService()
	require.NoError(suite.T(), err)
	assert.NotNil(suite.T(), seed)

	email, err := suite.Container.GetEmailService()
	require.NoError(suite.T(), err)
	assert.IsType(suite.T(), &services.TestEmailService{}, email)
}

func (suite *ServiceContainerIntegrationTestSuite) TestGetServiceAs_WrongType() {
	_, err := GetServiceAs[*services.BugService](suite.Container, serviceFeature)
	assert.Error(suite.T(), err)

	_, err = suite.Container.GetService("nonexistent")
	assert.Error(suite.T(), err)
}

func (suite *ServiceContainerIntegrationTestSuite) TestRouterServices() {
	svc, err := suite.Container.RouterServices()
	require.NoError(suite.T(), err)

	assert.NotNil(suite.T(), svc.Policy)
	assert.NotNil(suite.T(), svc.Testers)
	assert.NotNil(suite.T(), svc.Bugs)
	assert.NotNil(suite.T(), svc.Features)
	assert.NotNil(suite.T(), svc.Votes)
	assert.NotNil(suite.T(), svc.Comments)
	assert.NotNil(suite.T(), svc.Attachments)
	assert.NotNil(suite.T(), svc.Tracker)
	assert.NotNil(suite.T(), svc.Triage)
	assert.NotNil(suite.T(), svc.Analytics)
	assert.NotNil(suite.T(), svc.Announcements)
	assert.NotNil(suite.T(), svc.Dashboard)
	assert.NotNil(suite.T(), svc.Status)
	assert.NotNil(suite.T(), svc.Seed)
	// redis is off by default
	assert.Nil(suite.T(), svc.RateLimiter)
}

func (suite *ServiceContainerIntegrationTestSuite) TestShutdownClosesDatabase() {
	container := NewServiceContainer(suite.Config, suite.Logger)
	require.NoError(suite.T(), container.Initialize(context.Background()))

	db := container.GetDatabase()
	require.NoError(suite.T(), container.Shutdown(context.Background()))
	assert.Error(suite.T(), db.Ping())

	// a second shutdown has nothing left to close
	assert.NoError(suite.T(), container.Shutdown(context.Background()))
}
