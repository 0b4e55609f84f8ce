// Package bpx implements the BPX binary container format: a fixed main
// header, an array of section headers, and a contiguous region of
// independently compressed and checksummed section payloads. Two typed
// variants — package and shader-pack — build on top of this core; see
// variant/pkg and variant/shader.
package bpx

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/bpx-format/bpx/bpxerr"
)

// Fixed record sizes, in bytes, on the wire.
const (
	SizeMainHeader    = 40
	SizeSectionHeader = 24
)

// Signature is the literal 3-byte tag identifying the format.
var Signature = [3]byte{'B', 'P', 'X'}

// CurrentVersion is the only version this implementation writes. Readers
// reject any other value.
const CurrentVersion uint32 = 2

// Variant discriminators stored in MainHeader.Type.
const (
	TypePackage    byte = 'P'
	TypeShaderPack byte = 'S'
)

// Flag bits recognized in a SectionHeader's Flags byte. At most one
// checksum bit and at most one compression bit are meaningful; if both
// compression bits are clear the payload is stored verbatim.
const (
	FlagCheckWeak    byte = 1 << 0
	FlagCheckCRC32   byte = 1 << 1
	FlagCompressXZ   byte = 1 << 2
	FlagCompressZlib byte = 1 << 3
)

// MainHeader is the fixed-size record at file offset 0.
type MainHeader struct {
	Signature    [3]byte
	Type         byte
	Version      uint32
	FileSize     uint64
	SectionCount uint32
	Chksum       uint32
	TypeExt      [16]byte
}

// NewMainHeader returns a template header for the given variant type byte,
// with Version already set to CurrentVersion. SectionCount, FileSize and
// Chksum are filled in by the writer at Save time.
func NewMainHeader(variantType byte) MainHeader {
	return MainHeader{Signature: Signature, Type: variantType, Version: CurrentVersion}
}

func (h MainHeader) encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(SizeMainHeader)
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return nil, bpxerr.IO("main-header-encode", err)
	}
	return buf.Bytes(), nil
}

func decodeMainHeader(r io.Reader) (MainHeader, error) {
	var h MainHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return h, bpxerr.Truncation("main-header")
		}
		return h, bpxerr.IO("main-header-decode", err)
	}
	return h, nil
}

// SectionHeader is the fixed-size per-section record, one per section, in
// file order. Reserved must be zero on write.
type SectionHeader struct {
	Pointer  uint64
	Size     uint32
	Csize    uint32
	Chksum   uint32
	Type     byte
	Flags    byte
	Reserved [2]byte
}

func (h SectionHeader) encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(SizeSectionHeader)
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return nil, bpxerr.IO("section-header-encode", err)
	}
	return buf.Bytes(), nil
}

func decodeSectionHeader(r io.Reader) (SectionHeader, error) {
	var h SectionHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return h, bpxerr.Truncation("section-header")
		}
		return h, bpxerr.IO("section-header-decode", err)
	}
	return h, nil
}

// headerChecksum computes the main-header integrity checksum: the
// arithmetic sum of all main-header bytes with Chksum zeroed, plus the
// arithmetic sum of all section-header bytes across every section.
func headerChecksum(h MainHeader, sections []SectionHeader) (uint32, error) {
	zeroed := h
	zeroed.Chksum = 0
	mb, err := zeroed.encode()
	if err != nil {
		return 0, err
	}
	var sum uint32
	for _, b := range mb {
		sum += uint32(b)
	}
	for _, sh := range sections {
		sb, err := sh.encode()
		if err != nil {
			return 0, err
		}
		for _, b := range sb {
			sum += uint32(b)
		}
	}
	return sum, nil
}
