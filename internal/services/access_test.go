package services

import (
	"testing"

	"betaportal/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestAccessPolicy_IsAdmin(t *testing.T) {
	policy := NewAccessPolicy([]string{" user_admin ", "", "user_ops", "user_admin"})

	assert.True(t, policy.IsAdmin("user_admin"))
	assert.True(t, policy.IsAdmin(" user_ops"))
	assert.False(t, policy.IsAdmin("user_other"))
	assert.False(t, policy.IsAdmin(""))
	assert.False(t, policy.IsAdmin("   "))
	assert.Equal(t, []string{"user_admin", "user_ops"}, policy.AdminIDs())
}

func TestAccessPolicy_NilAndEmpty(t *testing.T) {
	var nilPolicy *AccessPolicy
	assert.False(t, nilPolicy.IsAdmin("anyone"))
	assert.Nil(t, nilPolicy.AdminIDs())

	empty := NewAccessPolicy(nil)
	assert.False(t, empty.IsAdmin(""))
	assert.Empty(t, empty.AdminIDs())
}

func TestClassifyAccess(t *testing.T) {
	tests := []struct {
		name     string
		tester   *models.Tester
		expected AccessState
		screen   string
	}{
		{"unregistered", nil, AccessUnregistered, ScreenRegistrationRequired},
		{"pending", &models.Tester{Status: models.TesterStatusPending}, AccessPending, ScreenUnderReview},
		{"approved", &models.Tester{Status: models.TesterStatusApproved}, AccessApproved, ScreenPortal},
		{"active", &models.Tester{Status: models.TesterStatusActive}, AccessApproved, ScreenPortal},
		{"suspended", &models.Tester{Status: models.TesterStatusSuspended}, AccessSuspended, ScreenSuspended},
		{"unknown status", &models.Tester{Status: "archived"}, AccessPending, ScreenUnderReview},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := ClassifyAccess(tt.tester)
			assert.Equal(t, tt.expected, state)
			assert.Equal(t, tt.screen, ScreenFor(state))
		})
	}
}

func TestScreenTitle(t *testing.T) {
	assert.Equal(t, "Beta Access Required", ScreenTitle(ScreenRegistrationRequired))
	assert.Equal(t, "Application Under Review", ScreenTitle(ScreenUnderReview))
	assert.Equal(t, "Access Suspended", ScreenTitle(ScreenSuspended))
	assert.Equal(t, "", ScreenTitle(ScreenPortal))
}

func TestDecide(t *testing.T) {
	policy := NewAccessPolicy([]string{"user_admin"})

	t.Run("signed out", func(t *testing.T) {
		d := Decide(policy, "", nil)
		assert.Equal(t, ScreenSignIn, d.Screen)
		assert.False(t, d.IsAdmin)
	})

	t.Run("admin without tester account", func(t *testing.T) {
		d := Decide(policy, "user_admin", nil)
		assert.Equal(t, AccessUnregistered, d.State)
		assert.Equal(t, ScreenRegistrationRequired, d.Screen)
		assert.True(t, d.IsAdmin)
	})

	t.Run("suspended admin keeps admin capability", func(t *testing.T) {
		tester := &models.Tester{ID: 3, Status: models.TesterStatusSuspended}
		d := Decide(policy, "user_admin", tester)
		assert.Equal(t, ScreenSuspended, d.Screen)
		assert.True(t, d.IsAdmin)
		assert.Same(t, tester, d.Tester)
	})

	t.Run("approved tester", func(t *testing.T) {
		d := Decide(policy, "user_1", &models.Tester{ID: 9, Status: models.TesterStatusApproved})
		assert.Equal(t, AccessApproved, d.State)
		assert.Equal(t, ScreenPortal, d.Screen)
		assert.Empty(t, d.Title)
		assert.False(t, d.IsAdmin)
	})
}
