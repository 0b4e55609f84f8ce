// Package pkgvariant implements the BPX package variant: a strings section,
// an optional BPXSD metadata section, and one or more data sections holding
// a packed file tree. Data sections are split once they approach a size
// cap; readers concatenate them, in file order, into one logical byte
// stream before parsing file records out of it.
package pkgvariant

import (
	"github.com/bpx-format/bpx/archenum"
)

// Section type codes used within a package-variant container.
const (
	SectionStrings  byte = 0
	SectionMetadata byte = 1
	SectionData     byte = 2
)

// maxDataSectionSize is the data-section split threshold: comfortably below
// the 4 GiB Size field cap, matching the "200 MiB less a buffer margin"
// behavior described for the original packer.
const maxDataSectionSize = 200*1024*1024 - 4096

// recordHeaderSize is the fixed prefix of each file record: an 8-byte
// little-endian uncompressed length followed by a 4-byte little-endian
// offset into the strings section.
const recordHeaderSize = 8 + 4

// TypeExt describes the package variant's 16-byte main-header type-ext
// field: target architecture, target platform, and a free-form 2-byte
// application code.
type TypeExt struct {
	Arch     archenum.Arch
	Platform archenum.Platform
	AppCode  [2]byte
}

func (t TypeExt) encode() [16]byte {
	var out [16]byte
	out[0] = byte(t.Arch)
	out[1] = byte(t.Platform)
	out[2] = t.AppCode[0]
	out[3] = t.AppCode[1]
	return out
}

func decodeTypeExt(raw [16]byte) TypeExt {
	return TypeExt{
		Arch:     archenum.Arch(raw[0]),
		Platform: archenum.Platform(raw[1]),
		AppCode:  [2]byte{raw[2], raw[3]},
	}
}

// FileEntry is one packed file as seen by a reader.
type FileEntry struct {
	Path string
	Size uint64
}
