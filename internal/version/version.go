// Package version exposes build metadata injected with -ldflags:
//
//	go build -ldflags "-X github.com/smazurov/blinkynode/internal/version.Version=v1.2.0 \
//	  -X github.com/smazurov/blinkynode/internal/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release tag.
	Version = "dev"
	// GitCommit is the short commit hash.
	GitCommit = "unknown"
	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// Info contains version and build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns version and build information.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns the release tag.
func String() string {
	return Version
}

// Long returns "<version> (<commit>, <platform>)" for startup logs and the
// CLI version flag.
func Long() string {
	info := Get()
	return fmt.Sprintf("%s (%s, %s)", info.Version, info.GitCommit, info.Platform)
}
