// Package version provides build/version metadata for the lync binary.
package version

import (
	"fmt"
	"runtime/debug"
)

// Info is the build metadata the CLI's `version` subcommand reports.
type Info struct {
	Version   string
	GitCommit string
	BuildTime string
}

// String renders Info the way the CLI's root command Version field and
// `lync version` subcommand do.
func (i Info) String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", i.Version, i.GitCommit, i.BuildTime)
}

// Detect reads build metadata from the Go module build info embedded
// by `go build`/`go install` (runtime/debug.ReadBuildInfo), falling
// back to "dev"/"unknown" when the binary wasn't built as a module
// (e.g. `go run`).
func Detect() Info {
	info := Info{Version: "dev", GitCommit: "unknown", BuildTime: "unknown"}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			if len(setting.Value) >= 7 {
				info.GitCommit = setting.Value[:7]
			}
		case "vcs.time":
			info.BuildTime = setting.Value
		}
	}
	return info
}
