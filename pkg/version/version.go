// Package version exposes build metadata of the histree binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the release of the histree binary, set with -ldflags at build time.
var Version = "dev"

// BinaryGitHash is the Git hash the binary was built from. When not set with
// -ldflags it falls back to the VCS revision embedded by the Go toolchain.
var BinaryGitHash = "<unknown>"

const shortHashLen = 12

func init() {
	if BinaryGitHash != "<unknown>" {
		return
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && setting.Value != "" {
			BinaryGitHash = setting.Value
		}
	}
}

// ShortHash returns BinaryGitHash truncated for display.
func ShortHash() string {
	if len(BinaryGitHash) > shortHashLen {
		return BinaryGitHash[:shortHashLen]
	}

	return BinaryGitHash
}

// Generator identifies this build inside produced documents, e.g. "histree dev".
func Generator() string {
	return "histree " + Version
}

// String renders the full version line printed by `histree version`.
func String() string {
	return fmt.Sprintf("histree %s (%s) %s %s/%s", Version, ShortHash(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
