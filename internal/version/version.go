// Package version provides build and version information for ScriptGraph.
package version

// Version is the current release version of ScriptGraph.
// This can be overridden at build time using:
//
//	go build -ldflags "-X github.com/AaronLay10/ScriptGraph/internal/version.Version=x.y.z"
var Version = "0.3.0"
