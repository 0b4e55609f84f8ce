// Package archenum enumerates the small, closed sets of architecture and
// platform codes used in the package variant's type-ext byte layout.
package archenum

import "github.com/bpx-format/bpx/bpxerr"

// Arch is a package-variant architecture code.
type Arch byte

const (
	ArchX86_64  Arch = 0
	ArchAarch64 Arch = 1
	ArchX86     Arch = 2
	ArchArmv7hl Arch = 3
	ArchAny     Arch = 4
)

var archNames = map[Arch]string{
	ArchX86_64:  "x86_64",
	ArchAarch64: "aarch64",
	ArchX86:     "x86",
	ArchArmv7hl: "armv7hl",
	ArchAny:     "any",
}

func (a Arch) String() string {
	if name, ok := archNames[a]; ok {
		return name
	}
	return "unknown"
}

// ArchByName looks up an Arch by its canonical name, the inverse of String.
func ArchByName(name string) (Arch, error) {
	for a, n := range archNames {
		if n == name {
			return a, nil
		}
	}
	return 0, bpxerr.Unsupported("unknown architecture: " + name)
}

// ValidArch reports whether a is one of the five defined architecture codes.
func ValidArch(a Arch) bool {
	_, ok := archNames[a]
	return ok
}
