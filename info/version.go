// Package info holds the build and version information of the program.
package info

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
)

var (
	name    = "[NAME]"
	version = "dev build"
	license = "[license unknown]"

	// Set with -ldflags "-X github.com/safing/portsync/info.buildTime=...".
	buildTime = "[build time unknown]"

	info     *Info
	loadInfo sync.Once
)

// Info holds the programs meta information.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	License string `json:"license"`

	GoVersion string `json:"goVersion"`
	Module    string `json:"module"`
	BuildTime string `json:"buildTime"`

	Commit     string `json:"commit"`
	CommitTime string `json:"commitTime"`
	Dirty      bool   `json:"dirty"`
}

// Set sets meta information via the main routine. It must be called before
// the first call to GetInfo.
func Set(setName string, setVersion string, setLicenseName string) {
	name = setName
	license = setLicenseName

	if setVersion != "" {
		version = setVersion
	}
}

// GetInfo returns all the meta information about the program.
func GetInfo() *Info {
	loadInfo.Do(func() {
		info = &Info{
			Name:      name,
			Version:   version,
			License:   license,
			GoVersion: runtime.Version(),
			BuildTime: buildTime,
		}

		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			info.Module = buildInfo.Main.Path
			for _, setting := range buildInfo.Settings {
				switch setting.Key {
				case "vcs.revision":
					info.Commit = setting.Value
				case "vcs.time":
					info.CommitTime = setting.Value
				case "vcs.modified":
					info.Dirty = setting.Value == "true"
				}
			}
		}

		if info.Commit == "" {
			info.Commit = "[commit unknown]"
		}
		if info.CommitTime == "" {
			info.CommitTime = "[commit time unknown]"
		}
	})

	return info
}

// Version returns the short version string.
func Version() string {
	if GetInfo().Dirty {
		return version + "*"
	}
	return version
}

// FullVersion returns the full and detailed version string.
func FullVersion() string {
	info := GetInfo()
	builder := new(strings.Builder)

	fmt.Fprintf(builder, "%s %s\n", info.Name, Version())
	fmt.Fprintf(builder, "\nbuilt with %s (%s) %s/%s\n", info.GoVersion, runtime.Compiler, runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(builder, "  at %s\n", info.BuildTime)
	fmt.Fprintf(builder, "\ncommit %s\n", info.Commit)
	fmt.Fprintf(builder, "  at %s\n", info.CommitTime)
	if info.Module != "" {
		fmt.Fprintf(builder, "  module %s\n", info.Module)
	}
	fmt.Fprintf(builder, "\nLicensed under the %s license.", info.License)

	return builder.String()
}
