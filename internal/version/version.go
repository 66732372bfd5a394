// Package version reports build metadata for vitrine binaries and captures.
package version

import (
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/vitrine"

// buildVersion is set via -ldflags "-X pkt.systems/vitrine/internal/version.buildVersion=...".
var buildVersion = ""

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Current returns the best available version string without a dirty suffix.
func Current() string {
	return current(false)
}

// CurrentWithDirty returns the best available version string, keeping the
// dirty suffix when the build tree was modified.
func CurrentWithDirty() string {
	return current(true)
}

// Module returns the main module path from build info when available.
func Module() string {
	if info, ok := readBuildInfo(); ok {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			return path
		}
	}
	return defaultModule
}

// Revision returns the VCS revision the binary was built from, or "".
func Revision() string {
	info, ok := readBuildInfo()
	if !ok {
		return ""
	}
	return readVCS(info).revision
}

// Summary is a one-line description used in capture revision files.
func Summary() string {
	parts := []string{Module(), CurrentWithDirty()}
	if rev := Revision(); rev != "" {
		parts = append(parts, rev)
	}
	return strings.Join(parts, " ")
}

func current(includeDirty bool) string {
	if strings.TrimSpace(buildVersion) != "" {
		return normalize(buildVersion, includeDirty)
	}
	if info, ok := readBuildInfo(); ok {
		if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
			return normalize(v, includeDirty)
		}
		if v := pseudoVersion(readVCS(info), includeDirty); v != "" {
			return v
		}
	}
	return "v0.0.0-unknown"
}

func normalize(v string, includeDirty bool) string {
	value := strings.TrimSpace(v)
	if includeDirty {
		return value
	}
	return strings.TrimSuffix(value, "+dirty")
}

type vcsInfo struct {
	revision string
	time     string
	modified bool
}

func readVCS(info *debug.BuildInfo) vcsInfo {
	var out vcsInfo
	if info == nil {
		return out
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			out.revision = setting.Value
		case "vcs.time":
			out.time = setting.Value
		case "vcs.modified":
			out.modified = setting.Value == "true"
		}
	}
	return out
}

func pseudoVersion(vcs vcsInfo, includeDirty bool) string {
	if vcs.revision == "" || vcs.time == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, vcs.time)
	if err != nil {
		return ""
	}
	rev := vcs.revision
	if len(rev) > 12 {
		rev = rev[:12]
	}
	v := "v0.0.0-" + parsed.UTC().Format("20060102150405") + "-" + rev
	if vcs.modified && includeDirty {
		v += "+dirty"
	}
	return v
}
