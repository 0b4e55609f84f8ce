package shadervariant

import (
	"bytes"
	"io"

	"github.com/bpx-format/bpx"
	"github.com/bpx-format/bpx/bpxerr"
	"github.com/bpx-format/bpx/sd"
)

// Reader parses a shader-pack container: its strings section, symbol
// table, shader blob sections, and optional extended-data objects.
type Reader struct {
	core    *bpx.Reader
	typeExt TypeExt
	strings *bpx.StringSection
	symbols []Symbol
	extData []byte // raw bytes of the extended-data section, nil if absent
}

// Open parses r as a shader-pack container.
func Open(r io.ReaderAt) (*Reader, error) {
	core, err := bpx.New(r)
	if err != nil {
		return nil, err
	}
	if core.MainHeader().Type != bpx.TypeShaderPack {
		return nil, bpxerr.Unsupported("not a shader-pack container")
	}

	stringsH, ok := core.FindSectionByType(SectionStrings)
	if !ok {
		return nil, bpxerr.Corruption("shader pack missing strings section")
	}
	stringsStore, err := core.OpenSection(stringsH)
	if err != nil {
		return nil, err
	}

	symH, ok := core.FindSectionByType(SectionSymbolTable)
	if !ok {
		return nil, bpxerr.Corruption("shader pack missing symbol table")
	}
	symStore, err := core.OpenSection(symH)
	if err != nil {
		return nil, err
	}
	n := symStore.Len() / symbolRecordSize
	symbols := make([]Symbol, 0, n)
	for i := int64(0); i < n; i++ {
		sym, err := decodeSymbol(symStore)
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}

	rd := &Reader{
		core:    core,
		typeExt: decodeTypeExt(core.MainHeader().TypeExt),
		strings: bpx.NewStringSection(stringsStore),
		symbols: symbols,
	}

	if extH, ok := core.FindSectionByType(SectionExtended); ok {
		extStore, err := core.OpenSection(extH)
		if err != nil {
			return nil, err
		}
		raw, err := extStore.LoadAll()
		if err != nil {
			return nil, bpxerr.IO("extended-data-load", err)
		}
		rd.extData = raw
	}

	return rd, nil
}

// TypeExt returns the parsed assembly hash, symbol count, target API and
// type code.
func (rd *Reader) TypeExt() TypeExt { return rd.typeExt }

// SymbolCount returns the number of symbols in the table.
func (rd *Reader) SymbolCount() int { return len(rd.symbols) }

// Symbol returns the i-th symbol record.
func (rd *Reader) Symbol(i int) (Symbol, error) {
	if i < 0 || i >= len(rd.symbols) {
		return Symbol{}, bpxerr.Other("invalid symbol index")
	}
	return rd.symbols[i], nil
}

// SymbolName resolves a symbol's name via the strings section.
func (rd *Reader) SymbolName(i int) (string, error) {
	sym, err := rd.Symbol(i)
	if err != nil {
		return "", err
	}
	return rd.strings.Get(sym.NameOffset)
}

// ShaderBlob returns a symbol's stage tag and opaque shader bytes, read
// from the section named by the symbol's SectionIndex.
func (rd *Reader) ShaderBlob(i int) (Stage, []byte, error) {
	sym, err := rd.Symbol(i)
	if err != nil {
		return 0, nil, err
	}
	store, err := rd.core.OpenSection(bpx.Handle(sym.SectionIndex))
	if err != nil {
		return 0, nil, err
	}
	raw, err := store.LoadAll()
	if err != nil {
		return 0, nil, bpxerr.IO("shader-blob-load", err)
	}
	if len(raw) < 1 {
		return 0, nil, bpxerr.Truncation("shader-blob")
	}
	return Stage(raw[0]), raw[1:], nil
}

// ExtendedData returns a symbol's attached BPXSD object, decoded starting
// at its ExtendedDataOffset byte offset into the extended-data section, or
// a MissingProp error if the symbol has none.
func (rd *Reader) ExtendedData(i int) (*sd.Object, error) {
	sym, err := rd.Symbol(i)
	if err != nil {
		return nil, err
	}
	if sym.Flags&FlagExtendedData == 0 {
		return nil, bpxerr.MissingProp("extended-data")
	}
	off := int(sym.ExtendedDataOffset)
	if off < 0 || off >= len(rd.extData) {
		return nil, bpxerr.Corruption("extended data offset out of range")
	}
	return sd.Decode(bytes.NewReader(rd.extData[off:]))
}
