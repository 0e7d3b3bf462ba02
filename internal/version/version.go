// Package version exposes the docquery build metadata. The release build
// stamps these with -ldflags "-X .../internal/version.Version=..." and
// friends; a plain `go build` reports a dev binary.
package version

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
