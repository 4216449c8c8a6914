package version

import (
	"fmt"
	"runtime"
)

// Version information - set at build time via ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Name is the program name shown in the banner and version output
const Name = "App Update Checker"

// Info returns formatted version information
func Info() string {
	return fmt.Sprintf("appcheck version %s\n  commit: %s\n  built: %s\n  go: %s\n  os/arch: %s/%s",
		Version, Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version string
func Short() string {
	return Version
}

// Banner returns the one-line title printed before every command
func Banner() string {
	return fmt.Sprintf("%s %s", Name, Version)
}
