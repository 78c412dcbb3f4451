// Package version provides build version information for hookline.
// Version variables can be overridden at build time using ldflags:
//
//	go build -ldflags "-X github.com/taliolabs/hookline/version.version=1.0.0"
package version

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
)

const (
	// devVersion is the default version when not set via ldflags
	devVersion = "dev"
	// shortCommitLen is the length of the short commit hash
	shortCommitLen = 7
	// vcsRevisionKey is the build info key for git commit
	vcsRevisionKey = "vcs.revision"
	// vcsModifiedKey is the build info key for dirty state
	vcsModifiedKey = "vcs.modified"
)

// Build-time variables - can be overridden with -ldflags
var (
	version   = devVersion
	gitCommit = ""
	buildDate = ""
)

// Info describes the running build.
type Info struct {
	// Version is the semantic version, or "dev" for unreleased builds.
	Version string
	// Commit is the short git commit hash, if known.
	Commit string
	// BuildDate is the build timestamp from ldflags, if set.
	BuildDate string
	// Dirty reports uncommitted changes at build time.
	Dirty bool
}

// Current returns the build info for this binary, combining ldflags
// overrides with go module build metadata.
func Current() Info {
	info := Info{
		Version:   Version(),
		Commit:    gitCommit,
		BuildDate: buildDate,
	}
	if info.Commit == "" {
		info.Commit = commitFromBuildInfo()
		info.Dirty = dirtyFromBuildInfo()
	}
	return info
}

// Version returns the current version string.
// Falls back to build info from go modules if version is "dev".
func Version() string {
	if version != devVersion {
		return version
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}

	return devVersion
}

// String renders the build info for human consumption.
func (i Info) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "hookline version %s", i.Version)
	if i.Commit != "" {
		fmt.Fprintf(&b, "\ncommit: %s", i.Commit)
	}
	if i.BuildDate != "" {
		fmt.Fprintf(&b, "\nbuilt: %s", i.BuildDate)
	}

	return b.String()
}

// Attrs returns the build info as structured slog attributes, useful for
// including version info in log messages.
func (i Info) Attrs() []any {
	attrs := []any{"version", i.Version}
	if i.Commit != "" {
		attrs = append(attrs, "commit", i.Commit)
	}
	if i.Dirty {
		attrs = append(attrs, "dirty", true)
	}
	if i.BuildDate != "" {
		attrs = append(attrs, "built", i.BuildDate)
	}
	return attrs
}

// commitFromBuildInfo extracts the short git commit hash from build info.
func commitFromBuildInfo() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	for _, setting := range info.Settings {
		if setting.Key == vcsRevisionKey && setting.Value != "" {
			return setting.Value[:min(shortCommitLen, len(setting.Value))]
		}
	}
	return ""
}

// dirtyFromBuildInfo checks if the build has uncommitted changes.
func dirtyFromBuildInfo() bool {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return false
	}

	for _, setting := range info.Settings {
		if setting.Key == vcsModifiedKey && setting.Value == "true" {
			return true
		}
	}
	return false
}

// LogStartup logs version information at debug level. Hosts typically call
// this once during startup.
func LogStartup() {
	// Only log when debug logging was requested via environment, to
	// avoid noise in production.
	envLevel := os.Getenv("LOG_LEVEL")
	switch strings.ToLower(envLevel) {
	case "debug", "trace":
	default:
		return
	}

	slog.Log(context.Background(), slog.LevelDebug, "hookline starting", Current().Attrs()...)
}
