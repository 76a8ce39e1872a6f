// Package version reports the build of the cl607 tools.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version can be set at build time:
// go build -ldflags "-X github.com/cl607/cl607/version.Version=$(git describe --dirty)"
var Version string

// Hash is the short VCS revision the binary was built from, with a -dirty
// suffix for a modified tree. Empty outside a VCS build.
var Hash = func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	return revision(info.Settings)
}()

// VersionOrHash is Version when set, else the module version of a go install
// build, else Hash, else "devel".
var VersionOrHash = func() string {
	var module string
	if info, ok := debug.ReadBuildInfo(); ok {
		module = info.Main.Version
	}
	return pick(Version, module, Hash)
}()

// Banner is the one-line version report of a command.
func Banner(command string) string {
	return fmt.Sprintf("%s %s (%s %s/%s)", command, VersionOrHash, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func revision(settings []debug.BuildSetting) string {
	var hash string
	modified := false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			hash = s.Value[:min(7, len(s.Value))]
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}
	if hash != "" && modified {
		return hash + "-dirty"
	}
	return hash
}

func pick(version, module, hash string) string {
	switch {
	case version != "":
		return version
	case module != "" && module != "(devel)":
		return module
	case hash != "":
		return hash
	}
	return "devel"
}
