package archenum

import "github.com/bpx-format/bpx/bpxerr"

// Platform is a package-variant platform code.
type Platform byte

const (
	PlatformLinux   Platform = 0
	PlatformMac     Platform = 1
	PlatformWindows Platform = 2
	PlatformAndroid Platform = 3
	PlatformAny     Platform = 4
)

var platformNames = map[Platform]string{
	PlatformLinux:   "linux",
	PlatformMac:     "mac",
	PlatformWindows: "windows",
	PlatformAndroid: "android",
	PlatformAny:     "any",
}

func (p Platform) String() string {
	if name, ok := platformNames[p]; ok {
		return name
	}
	return "unknown"
}

// PlatformByName looks up a Platform by its canonical name.
func PlatformByName(name string) (Platform, error) {
	for p, n := range platformNames {
		if n == name {
			return p, nil
		}
	}
	return 0, bpxerr.Unsupported("unknown platform: " + name)
}

// ValidPlatform reports whether p is one of the five defined platform codes.
func ValidPlatform(p Platform) bool {
	_, ok := platformNames[p]
	return ok
}
