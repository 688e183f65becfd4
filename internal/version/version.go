// Package version holds build metadata injected with -ldflags.
package version

// Set at build time:
//
//	go build -ldflags "-X github.com/sydlexius/svgscout/internal/version.Version=v1.2.3 -X github.com/sydlexius/svgscout/internal/version.Commit=abc123"
var (
	Version = "dev"
	Commit  = "unknown"
)

// String formats the version for display.
func String() string {
	return Version + " (" + Commit + ")"
}
