// Package buildinfo carries build-time identity, stamped via ldflags.
package buildinfo

var (
	Version = "dev"
	Commit  = "unknown"
)
