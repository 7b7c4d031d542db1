package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion_DefaultValues(t *testing.T) {
	assert.Equal(t, "dev", Version)
	assert.Equal(t, "dev", Commit)
	assert.Equal(t, "unknown", BuildTime)
}

func TestInfo(t *testing.T) {
	info := Info("beta-portal")
	assert.Equal(t, BuildInfo{Service: "beta-portal", Version: "dev", Commit: "dev", BuildTime: "unknown"}, info)
}

func TestString_Overridden(t *testing.T) {
	oldVersion, oldCommit, oldBuild := Version, Commit, BuildTime
	t.Cleanup(func() { Version, Commit, BuildTime = oldVersion, oldCommit, oldBuild })

	Version, Commit, BuildTime = "v1.2.3", "abc123", "2026-01-02T03:04:05Z"
	assert.Equal(t, "v1.2.3 (commit abc123, built 2026-01-02T03:04:05Z)", String())
}

func TestBuildInfo_String(t *testing.T) {
	info := BuildInfo{Service: "beta-portal", Version: "v0.9.2", Commit: "abc123", BuildTime: "2026-01-02T03:04:05Z"}
	assert.Equal(t, "beta-portal v0.9.2 (commit abc123, built 2026-01-02T03:04:05Z)", info.String())
}
