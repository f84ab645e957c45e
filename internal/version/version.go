// Package version records the build version of the simulator.
package version

// Version is the current release, overridable at build time with
// -ldflags "-X .../internal/version.Version=...".
var Version = "0.3.0"
