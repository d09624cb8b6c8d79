// Package version exposes the binary's build metadata.
package version

import (
	"fmt"
	"runtime"
)

// Version is injected at build time via
// -X github.com/aman-cerp/semantic-code-mcp/pkg/version.Version=...
// and stays "dev" for local builds.
var Version = "dev"

var (
	// Commit is the short git hash, injected at build time.
	Commit = "unknown"

	// Date is the RFC3339 build date, injected at build time.
	Date = "unknown"

	// GoVersion is the toolchain that built the binary.
	GoVersion = runtime.Version()
)

// BuildInfo is the structured form, for JSON output.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// String renders the one-line version banner.
func String() string {
	return fmt.Sprintf("semantic-code-mcp %s (commit: %s, built: %s, go: %s)",
		Version, Commit, Date, GoVersion)
}

// Short returns just the version.
func Short() string {
	return Version
}

// GetInfo returns the structured build information.
func GetInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Full renders the multi-line form for `version --full`.
func Full() string {
	return fmt.Sprintf(
		"semantic-code-mcp version %s\n  git commit: %s\n  build time: %s\n  go version: %s\n  platform: %s/%s",
		Version, Commit, Date, runtime.Version(), runtime.GOOS, runtime.GOARCH,
	)
}
