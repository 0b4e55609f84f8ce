// Package shadervariant implements the BPX shader-pack variant: a strings
// section, a fixed-width symbol table, zero or more shader blob sections,
// and an optional extended-data section of concatenated BPXSD objects.
package shadervariant

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/bpx-format/bpx/bpxerr"
)

// Section type codes used within a shader-pack container.
const (
	SectionStrings     byte = 0
	SectionSymbolTable byte = 1
	SectionShader      byte = 2
	SectionExtended    byte = 3
)

// Stage is the one-byte tag prefixing every shader section's payload.
type Stage byte

const (
	StageVertex   Stage = 0
	StageHull     Stage = 1
	StageDomain   Stage = 2
	StageGeometry Stage = 3
	StagePixel    Stage = 4
)

// Symbol type codes.
const (
	TypeAssembly byte = 'A'
	TypePipeline byte = 'P'
)

// FlagExtendedData marks a symbol whose ExtendedDataOffset is meaningful.
const FlagExtendedData byte = 1 << 0

// symbolRecordSize is the fixed wire size of a Symbol: name_offset(4) +
// stage(1) + type(1) + flags(1) + pad(1) + size(4) + extended_data_offset(4)
// + section_index(4).
const symbolRecordSize = 20

// Symbol is one entry in a shader pack's symbol table.
type Symbol struct {
	NameOffset         uint32
	Stage              byte
	Type               byte
	Flags              byte
	Pad                byte
	Size               uint32
	ExtendedDataOffset uint32
	SectionIndex       uint32
}

func (s Symbol) encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(symbolRecordSize)
	if err := binary.Write(&buf, binary.LittleEndian, s); err != nil {
		return nil, bpxerr.IO("symbol-encode", err)
	}
	return buf.Bytes(), nil
}

func decodeSymbol(r io.Reader) (Symbol, error) {
	var s Symbol
	if err := binary.Read(r, binary.LittleEndian, &s); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return s, bpxerr.Truncation("symbol-decode")
		}
		return s, bpxerr.IO("symbol-decode", err)
	}
	return s, nil
}

// TypeExt describes the shader-pack main-header type-ext field.
type TypeExt struct {
	AssemblyHash uint64
	SymbolCount  uint16
	TargetAPI    byte
	TypeCode     byte
}

func (t TypeExt) encode() [16]byte {
	var out [16]byte
	binary.LittleEndian.PutUint64(out[0:8], t.AssemblyHash)
	binary.LittleEndian.PutUint16(out[8:10], t.SymbolCount)
	out[10] = t.TargetAPI
	out[11] = t.TypeCode
	return out
}

func decodeTypeExt(raw [16]byte) TypeExt {
	return TypeExt{
		AssemblyHash: binary.LittleEndian.Uint64(raw[0:8]),
		SymbolCount:  binary.LittleEndian.Uint16(raw[8:10]),
		TargetAPI:    raw[10],
		TypeCode:     raw[11],
	}
}
