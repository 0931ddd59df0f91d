// Package version provides build version information embedding for
// prockit applications.
//
// Version, git commit, and build time are set at compile time via
// -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/prockit/version.Version=1.0.0"
//
// When no ldflags are provided, git metadata is read from the binary's
// embedded build info.
package version
