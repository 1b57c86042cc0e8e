// Package version exposes build metadata for alarm-alert and alarm-alert-ctl.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. Fields renders them for the daemon's startup log.
package version
