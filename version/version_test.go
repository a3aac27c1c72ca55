package version

import (
	"runtime/debug"
	"testing"
)

func withBuildVars(t *testing.T, version, commit, buildTime string) {
	t.Helper()
	oldV, oldC, oldB := Version, GitCommit, BuildTime
	Version, GitCommit, BuildTime = version, commit, buildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = oldV, oldC, oldB })
}

func TestFromBuildInfoDefaults(t *testing.T) {
	withBuildVars(t, "dev", "", "")
	info := fromBuildInfo(nil, false)
	if info.Version != "dev" || info.GitCommit != "" || info.IsRelease() {
		t.Errorf("info = %+v", info)
	}
	if info.Short() != "dev" {
		t.Errorf("Short() = %q", info.Short())
	}
}

func TestFromBuildInfoVCS(t *testing.T) {
	withBuildVars(t, "1.4.0", "", "")
	bi := &debug.BuildInfo{
		GoVersion: "go1.25.0",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	info := fromBuildInfo(bi, true)

	if info.GitCommit != "0123456" {
		t.Errorf("GitCommit = %q, want short hash", info.GitCommit)
	}
	if !info.Dirty || info.IsRelease() {
		t.Errorf("dirty build reported as release: %+v", info)
	}
	if got := info.Short(); got != "1.4.0-0123456-dirty" {
		t.Errorf("Short() = %q", got)
	}
	if got := info.String(); got != "1.4.0-0123456-dirty (built 2026-01-02T03:04:05Z) go1.25.0" {
		t.Errorf("String() = %q", got)
	}
}

func TestLinkerValuesWin(t *testing.T) {
	withBuildVars(t, "2.0.0", "abc1234", "2026-05-01T00:00:00Z")
	bi := &debug.BuildInfo{Settings: []debug.BuildSetting{
		{Key: "vcs.revision", Value: "ffffffffffff"},
		{Key: "vcs.time", Value: "2020-01-01T00:00:00Z"},
	}}
	info := fromBuildInfo(bi, true)
	if info.GitCommit != "abc1234" || info.BuildTime != "2026-05-01T00:00:00Z" {
		t.Errorf("info = %+v", info)
	}
	if !info.IsRelease() {
		t.Error("expected release build")
	}
}

func TestGet(t *testing.T) {
	if Get().Version == "" {
		t.Error("Get() returned an empty version")
	}
}
