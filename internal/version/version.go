// Package version holds build identification, stamped via -ldflags.
package version

var (
	// Version is the release tag, or "dev" for local builds
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build identification for startup logs.
func String() string {
	return Version + " (" + GitSHA + ", built " + BuildTime + ")"
}
