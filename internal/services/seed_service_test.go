package services

import (
	"strings"
	"testing"

	contextutils "betaportal/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSeedFixture_Embedded(t *testing.T) {
	fixture, err := LoadSeedFixture(seedFixtureYAML)
	require.NoError(t, err)

	assert.Equal(t, "Jamie", fixture.Admin.Name)
	assert.Equal(t, "jamie@adaptensor.io", fixture.Admin.Email)
	assert.Equal(t, []string{"AdaptBooks", "AdaptAero", "AdaptVault"}, fixture.Admin.InterestedProducts)

	require.Len(t, fixture.Bugs, 5)
	assert.Equal(t, "fixed", fixture.Bugs[0].Status)
	assert.True(t, fixture.Bugs[0].Resolved)
	assert.Equal(t, "v0.9.3", fixture.Bugs[0].FixedInVersion)
	assert.True(t, strings.HasPrefix(fixture.Bugs[0].StepsToReproduce, "1. Create an AD compliance entry\n2."))

	require.Len(t, fixture.Features, 4)
	votes := []int{}
	for _, f := range fixture.Features {
		votes = append(votes, f.VoteCount)
	}
	assert.Equal(t, []int{8, 12, 5, 3}, votes)

	require.Len(t, fixture.Comments, 3)
	assert.Equal(t, "BUG-001", fixture.Comments[0].Report)
	assert.True(t, fixture.Comments[0].AsAdmin)
	assert.False(t, fixture.Comments[1].AsAdmin)

	require.Len(t, fixture.Announcements, 4)
	assert.True(t, fixture.Announcements[0].IsPinned)
	assert.Equal(t, "release", fixture.Announcements[0].Type)
}

func TestLoadSeedFixture_RejectsInvalid(t *testing.T) {
	raw := `
admin: {name: Jamie, email: jamie@example.com, role: Other}
bugs:
  - {title: Broken, category: Other, severity: catastrophic, status: submitted}
features: []
comments: []
announcements: []
`
	_, err := LoadSeedFixture([]byte(raw))
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeValidationFailed, contextutils.GetErrorCode(err))
	assert.Contains(t, err.Error(), "severity")
}

func TestLoadSeedFixture_RejectsMalformedYAML(t *testing.T) {
	_, err := LoadSeedFixture([]byte("admin: [unclosed"))
	require.Error(t, err)
}
