// Package version reports build information for rrpool binaries.
//
// Values are injected with ldflags:
//
//	go build -ldflags "-X github.com/shardpool/rrpool/version.Version=0.3.0 -X github.com/shardpool/rrpool/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Untagged builds report "dev".
package version

import "runtime"

// Version is the release version.
var Version = "dev"

// GitCommit is the short commit hash the binary was built from.
var GitCommit = ""

// BuildTime is the UTC build timestamp in RFC 3339 form.
var BuildTime = ""

// Info is build information in a form suitable for JSON output.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
}

// Get returns the current build information.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// Full returns the version with commit and build time appended when known.
func Full() string {
	v := Version
	if GitCommit != "" {
		v += "-" + GitCommit
	}
	if BuildTime != "" {
		v += " (" + BuildTime + ")"
	}
	return v
}
