package models

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestSeverityRank(t *testing.T) {
	assert.Equal(t, 0, SeverityRank("critical"))
	assert.Equal(t, 1, SeverityRank("high"))
	assert.Equal(t, 2, SeverityRank("medium"))
	assert.Equal(t, 3, SeverityRank("low"))
	assert.Equal(t, 4, SeverityRank("trivial"))
	assert.Equal(t, 4, SeverityRank(""))
}

func TestVocabularies(t *testing.T) {
	assert.Len(t, Categories, 16)
	assert.Len(t, BugStatuses, 8)
	assert.Len(t, FeatureStatuses, 6)
	assert.True(t, IsBugStatus("wont-fix"))
	assert.False(t, IsBugStatus("shipped"))
	assert.True(t, IsFeatureStatus("under-review"))
	assert.False(t, IsFeatureStatus("fixed"))
	assert.True(t, IsSeverity("critical"))
	assert.False(t, IsSeverity("urgent"))
	assert.True(t, IsAnnouncementType("breaking"))
	assert.False(t, IsAnnouncementType("news"))
	assert.True(t, TesterStatusSuspended.Valid())
	assert.False(t, TesterStatus("banned").Valid())
}

func TestRefFromIDs(t *testing.T) {
	ref, err := RefFromIDs(intPtr(3), nil)
	require.NoError(t, err)
	assert.Equal(t, BugRef(3), ref)

	ref, err = RefFromIDs(nil, intPtr(9))
	require.NoError(t, err)
	assert.Equal(t, FeatureRef(9), ref)

	_, err = RefFromIDs(intPtr(1), intPtr(2))
	assert.ErrorIs(t, err, ErrBothReportTargets)

	_, err = RefFromIDs(nil, nil)
	assert.ErrorIs(t, err, ErrNoReportTarget)

	_, err = RefFromIDs(intPtr(0), nil)
	assert.ErrorIs(t, err, ErrNoReportTarget)
}

func TestReportRefColumns(t *testing.T) {
	bugID, featureID := BugRef(4).Columns()
	require.NotNil(t, bugID)
	assert.Equal(t, 4, *bugID)
	assert.Nil(t, featureID)

	bugID, featureID = FeatureRef(5).Columns()
	assert.Nil(t, bugID)
	require.NotNil(t, featureID)
	assert.Equal(t, 5, *featureID)

	assert.True(t, BugRef(1).Valid())
	assert.False(t, ReportRef{Kind: "epic", ID: 1}.Valid())
	assert.False(t, FeatureRef(0).Valid())
	assert.Equal(t, "feature:5", FeatureRef(5).String())
}

func TestParseReportKind(t *testing.T) {
	k, ok := ParseReportKind("bug")
	assert.True(t, ok)
	assert.Equal(t, ReportKindBug, k)
	_, ok = ParseReportKind("Bug")
	assert.False(t, ok)
}

func TestTesterMarshalJSON(t *testing.T) {
	tester := Tester{
		ID:           7,
		Name:         "Jamie",
		Email:        "jamie@adaptensor.io",
		Company:      sql.NullString{String: "Adaptensor, Inc.", Valid: true},
		Role:         "Shop Owner / Manager",
		Status:       TesterStatusActive,
		RegisteredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := json.Marshal(tester)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "Adaptensor, Inc.", out["company"])
	assert.Nil(t, out["externalId"])
	assert.Nil(t, out["approvedAt"])
	assert.Equal(t, "active", out["status"])

	withCounts := TesterWithCounts{Tester: tester, Counts: TesterCounts{BugReports: 2, FeatureRequests: 1, Votes: 4}}
	data, err = json.Marshal(withCounts)
	require.NoError(t, err)
	out = map[string]interface{}{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "Jamie", out["name"])
	counts := out["_count"].(map[string]interface{})
	assert.Equal(t, float64(2), counts["bugReports"])
	assert.Equal(t, float64(4), counts["votes"])
}

func TestTesterHelpers(t *testing.T) {
	var nilTester *Tester
	assert.False(t, nilTester.HasPortalAccess())
	assert.True(t, (&Tester{Status: TesterStatusApproved}).HasPortalAccess())
	assert.True(t, (&Tester{Status: TesterStatusActive}).HasPortalAccess())
	assert.False(t, (&Tester{Status: TesterStatusPending}).HasPortalAccess())

	tester := Tester{InterestedProducts: sql.NullString{String: "AdaptBooks, AdaptAero,, ", Valid: true}}
	assert.Equal(t, []string{"AdaptBooks", "AdaptAero"}, tester.Products())
	assert.Nil(t, (&Tester{}).Products())
}

func TestCommentMarshalJSON(t *testing.T) {
	c := Comment{ID: 1, Target: FeatureRef(12), TesterID: 3, AuthorName: "Jamie (Admin)", IsAdmin: true, Content: "Scoping now."}
	data, err := json.Marshal(c)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Nil(t, out["bugReportId"])
	assert.Equal(t, float64(12), out["featureRequestId"])
	assert.Equal(t, true, out["isAdmin"])
}
