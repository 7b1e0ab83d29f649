// Package version holds the boxctl build version, overridden at link time
// via -ldflags "-X github.com/boxlab/boxctl/internal/version.Version=...".
package version

var Version = "0.3.0-dev"
