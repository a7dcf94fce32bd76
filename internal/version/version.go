package version

import "fmt"

var (
	// Version is the semantic version of the build.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time.
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// UserAgent identifies the host in upstream asset requests.
func UserAgent() string {
	return "psfree-host/" + Version
}

// Full returns the version with commit and build time, as printed by `version`.
func Full() string {
	return fmt.Sprintf("psfree-host %s (commit: %s, built at: %s)", Version, Commit, BuildTime)
}
