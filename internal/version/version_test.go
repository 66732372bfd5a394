package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func withBuildInfo(t *testing.T, info *debug.BuildInfo) {
	t.Helper()
	prev := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, info != nil }
	t.Cleanup(func() { readBuildInfo = prev })
}

func TestCurrentPrefersLdflags(t *testing.T) {
	prev := buildVersion
	buildVersion = "v1.2.3+dirty"
	t.Cleanup(func() { buildVersion = prev })

	if got := Current(); got != "v1.2.3" {
		t.Fatalf("expected v1.2.3, got %q", got)
	}
	if got := CurrentWithDirty(); got != "v1.2.3+dirty" {
		t.Fatalf("expected dirty suffix, got %q", got)
	}
}

func TestCurrentBuildsPseudoVersion(t *testing.T) {
	withBuildInfo(t, &debug.BuildInfo{
		Main: debug.Module{Path: "example.com/x", Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	})
	if got := Current(); got != "v0.0.0-20260102030405-0123456789ab" {
		t.Fatalf("unexpected pseudo version %q", got)
	}
	if got := CurrentWithDirty(); !strings.HasSuffix(got, "+dirty") {
		t.Fatalf("expected dirty pseudo version, got %q", got)
	}
	if got := Module(); got != "example.com/x" {
		t.Fatalf("expected module from build info, got %q", got)
	}
	if !strings.Contains(Summary(), "0123456789abcdef0123") {
		t.Fatalf("expected summary to include revision, got %q", Summary())
	}
}

func TestFallbacksWithoutBuildInfo(t *testing.T) {
	withBuildInfo(t, nil)
	if got := Current(); got != "v0.0.0-unknown" {
		t.Fatalf("expected unknown version, got %q", got)
	}
	if got := Module(); got != defaultModule {
		t.Fatalf("expected default module, got %q", got)
	}
	if Revision() != "" {
		t.Fatalf("expected empty revision")
	}
}
