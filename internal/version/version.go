// Package version holds build identification, set with -ldflags at release:
//
//	-X github.com/gzhole/lastlayer/internal/version.Version=1.2.3
package version

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)
