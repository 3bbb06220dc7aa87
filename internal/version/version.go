// Package version holds the flash CLI build metadata, injected at build
// time via -ldflags.
package version

// Version is the semantic version of this build. Overridden at release
// build time with -ldflags "-X github.com/runpod/flash/internal/version.Version=v1.2.3".
var Version = "0.0.0-dev"

// Commit is the git commit this build was produced from.
var Commit = "unknown"

// BuildDate is the UTC build timestamp in RFC3339.
var BuildDate = "unknown"

// String renders the full version line shown by `flash --version`. The
// User-Agent header carries Version alone, not this string.
func String() string {
	if Commit == "unknown" {
		return Version
	}
	return Version + " (" + Commit + ")"
}
