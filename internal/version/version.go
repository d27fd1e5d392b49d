// Package version holds the build version, set at link time with
// -ldflags "-X github.com/aristath/storable/internal/version.Version=v1.2.3".
package version

// Version is the release tag of the running binary.
var Version = "dev"
