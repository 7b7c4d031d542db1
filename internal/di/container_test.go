package di

import (
	"context"
	"testing"

	"betaportal/internal/config"
	"betaportal/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func newTestContainer() *ServiceContainer {
	return NewServiceContainer(config.Default(), observability.NewLogger(&config.OpenTelemetryConfig{}))
}

func TestGetService_Missing(t *testing.T) {
	sc := newTestContainer()

	_, err := sc.GetService(serviceTester)
	assert.Error(t, err)

	_, err = sc.GetTesterService()
	assert.Error(t, err)
}

func TestGetServiceAs_TypeMismatch(t *testing.T) {
	sc := newTestContainer()
	sc.services[serviceTester] = "not a service"

	_, err := sc.GetTesterService()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not of expected type")
}

func TestRouterServices_ReportsEveryMissingService(t *testing.T) {
	sc := newTestContainer()

	_, err := sc.RouterServices()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 13)
}

func TestInitializeRedis_DisabledLeavesLimiterNil(t *testing.T) {
	sc := newTestContainer()
	sc.cfg.RateLimit.Enabled = true

	sc.initializeRedis(context.Background())
	assert.Nil(t, sc.redis)
	assert.Nil(t, sc.rateLimiter)
	assert.Empty(t, sc.shutdownFuncs)
}

func TestCleanup_RunsShutdownFuncsInReverse(t *testing.T) {
	sc := newTestContainer()
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		sc.shutdownFuncs = append(sc.shutdownFuncs, func(context.Context) error {
			order = append(order, i)
			return nil
		})
	}

	require.NoError(t, sc.Shutdown(context.Background()))
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.Empty(t, sc.shutdownFuncs)
}
