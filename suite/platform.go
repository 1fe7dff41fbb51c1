package suite

import (
	"fmt"
	"runtime"
)

// Platform identifies the kind of execution context a suite was loaded for.
type Platform struct {
	Name string
}

var (
	PlatformVM      = Platform{Name: "vm"}
	PlatformBrowser = Platform{Name: "browser"}
	PlatformNode    = Platform{Name: "node"}
)

var knownPlatforms = []Platform{PlatformVM, PlatformBrowser, PlatformNode}

// FindPlatform looks up a platform by the name used on the wire.
func FindPlatform(name string) (Platform, error) {
	for _, p := range knownPlatforms {
		if p.Name == name {
			return p, nil
		}
	}
	return Platform{}, fmt.Errorf("unknown platform %q", name)
}

// OperatingSystem identifies the OS a suite is running on, for platforms
// with per-OS variance. OSNone is used for platforms where the OS is not
// meaningful.
type OperatingSystem struct {
	Name string
}

var (
	OSLinux   = OperatingSystem{Name: "linux"}
	OSMacOS   = OperatingSystem{Name: "macos"}
	OSWindows = OperatingSystem{Name: "windows"}
	OSAndroid = OperatingSystem{Name: "android"}
	OSIOS     = OperatingSystem{Name: "ios"}
	OSNone    = OperatingSystem{Name: "none"}
)

var knownOSes = []OperatingSystem{OSLinux, OSMacOS, OSWindows, OSAndroid, OSIOS, OSNone}

// FindOS looks up an operating system by the name used on the wire.
func FindOS(name string) (OperatingSystem, error) {
	for _, os := range knownOSes {
		if os.Name == name {
			return os, nil
		}
	}
	return OperatingSystem{}, fmt.Errorf("unknown operating system %q", name)
}

// CurrentOS maps the running process's OS onto the protocol's identifiers.
func CurrentOS() OperatingSystem {
	switch runtime.GOOS {
	case "linux":
		return OSLinux
	case "darwin":
		return OSMacOS
	case "windows":
		return OSWindows
	case "android":
		return OSAndroid
	case "ios":
		return OSIOS
	default:
		return OSNone
	}
}
