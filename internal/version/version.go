package version

import (
	"runtime/debug"
	"strings"
)

// Version will be set during build time via ldflags, fallback to build info
var Version = "dev"

// BuildTime will be set during build time via ldflags
var BuildTime = "unknown"

// GitCommit will be set during build time via ldflags
var GitCommit = "unknown"

// readBuildInfo is replaced in tests
var readBuildInfo = debug.ReadBuildInfo

// GetVersionInfo returns the release version. Binaries built without
// ldflags report the module version, or "dev-<revision>" when built from a
// checkout.
func GetVersionInfo() string {
	if Version != "dev" {
		return Version
	}

	info, ok := readBuildInfo()
	if !ok {
		return "dev-unknown"
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return strings.TrimPrefix(v, "v")
	}
	if rev := setting(info, "vcs.revision"); rev != "" {
		if len(rev) > 7 {
			rev = rev[:7]
		}
		return "dev-" + rev
	}
	return "dev-unknown"
}

// Commit returns GitCommit, or the VCS revision stamped by the toolchain
func Commit() string {
	if GitCommit != "unknown" {
		return GitCommit
	}
	if info, ok := readBuildInfo(); ok {
		if rev := setting(info, "vcs.revision"); rev != "" {
			return rev
		}
	}
	return GitCommit
}

// GetFullVersionInfo returns detailed version information
func GetFullVersionInfo() string {
	version := GetVersionInfo()
	commit := Commit()
	if BuildTime != "unknown" && commit != "unknown" {
		return version + " (built " + BuildTime + ", commit " + commit + ")"
	}
	if commit != "unknown" {
		return version + " (commit " + commit + ")"
	}
	return version
}

func setting(info *debug.BuildInfo, key string) string {
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}
