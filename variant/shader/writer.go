package shadervariant

import (
	"bytes"
	"io"

	"github.com/bpx-format/bpx"
	"github.com/bpx-format/bpx/bpxerr"
	"github.com/bpx-format/bpx/sd"
)

// Writer builds a shader-pack container: a strings section, a symbol
// table, one section per packed shader blob, and an optional
// extended-data section of BPXSD objects.
type Writer struct {
	core     *bpx.Writer
	typeExt  TypeExt
	strings  *bpx.StringSection
	symbols  []Symbol
	extended []*sd.Object
}

// NewWriter constructs an empty shader-pack writer.
func NewWriter(typeExt TypeExt) (*Writer, error) {
	core := bpx.NewWriter(bpx.TypeShaderPack)
	h, err := core.CreateSection(bpx.SectionHeader{
		Type:  SectionStrings,
		Flags: bpx.FlagCheckWeak | bpx.FlagCompressZlib,
	}, 0)
	if err != nil {
		return nil, err
	}
	store, err := core.OpenSection(h)
	if err != nil {
		return nil, err
	}
	return &Writer{
		core:    core,
		typeExt: typeExt,
		strings: bpx.NewStringSection(store),
	}, nil
}

// AddShader packs a shader blob under name, returning the symbol's index.
// extData, if non-nil, is attached as the symbol's extended-data object.
func (w *Writer) AddShader(name string, stage Stage, typeCode byte, blob []byte, extData *sd.Object) (int, error) {
	nameOffset, err := w.strings.Put(name)
	if err != nil {
		return 0, err
	}

	h, err := w.core.CreateSection(bpx.SectionHeader{
		Type:  SectionShader,
		Flags: bpx.FlagCheckCRC32 | bpx.FlagCompressXZ,
	}, int64(len(blob))+1)
	if err != nil {
		return 0, err
	}
	store, err := w.core.OpenSection(h)
	if err != nil {
		return 0, err
	}
	if _, err := store.Write([]byte{byte(stage)}); err != nil {
		return 0, bpxerr.IO("shader-stage-tag", err)
	}
	if _, err := store.Write(blob); err != nil {
		return 0, bpxerr.IO("shader-blob", err)
	}

	sym := Symbol{
		NameOffset:   nameOffset,
		Stage:        byte(stage),
		Type:         typeCode,
		Size:         uint32(len(blob)),
		SectionIndex: uint32(h),
	}
	if extData != nil {
		sym.Flags |= FlagExtendedData
		// Provisional: the index into w.extended. finalize rewrites this to
		// the object's actual byte offset within the extended-data section
		// once every object's encoded length is known.
		sym.ExtendedDataOffset = uint32(len(w.extended))
		w.extended = append(w.extended, extData)
	}
	w.symbols = append(w.symbols, sym)
	return len(w.symbols) - 1, nil
}

func (w *Writer) finalize() error {
	// Encode every extended-data object into one buffer first, recording
	// each one's byte offset within it, so the symbol table can carry real
	// extended_data_offset values (offsets into the extended-data section,
	// per spec) rather than the provisional w.extended index.
	var extBuf bytes.Buffer
	if len(w.extended) > 0 {
		offsets := make([]uint32, len(w.extended))
		for i, obj := range w.extended {
			offsets[i] = uint32(extBuf.Len())
			if err := sd.Encode(&extBuf, obj); err != nil {
				return err
			}
		}
		for i := range w.symbols {
			if w.symbols[i].Flags&FlagExtendedData != 0 {
				w.symbols[i].ExtendedDataOffset = offsets[w.symbols[i].ExtendedDataOffset]
			}
		}
	}

	symH, err := w.core.CreateSection(bpx.SectionHeader{
		Type:  SectionSymbolTable,
		Flags: bpx.FlagCheckWeak | bpx.FlagCompressZlib,
	}, int64(len(w.symbols))*symbolRecordSize)
	if err != nil {
		return err
	}
	symStore, err := w.core.OpenSection(symH)
	if err != nil {
		return err
	}
	for _, sym := range w.symbols {
		buf, err := sym.encode()
		if err != nil {
			return err
		}
		if _, err := symStore.Write(buf); err != nil {
			return bpxerr.IO("symbol-table-write", err)
		}
	}

	if extBuf.Len() > 0 {
		extH, err := w.core.CreateSection(bpx.SectionHeader{
			Type:  SectionExtended,
			Flags: bpx.FlagCheckWeak | bpx.FlagCompressZlib,
		}, int64(extBuf.Len()))
		if err != nil {
			return err
		}
		extStore, err := w.core.OpenSection(extH)
		if err != nil {
			return err
		}
		if _, err := extStore.Write(extBuf.Bytes()); err != nil {
			return bpxerr.IO("extended-data-write", err)
		}
	}

	w.typeExt.SymbolCount = uint16(len(w.symbols))
	mh := bpx.NewMainHeader(bpx.TypeShaderPack)
	mh.TypeExt = w.typeExt.encode()
	w.core.SetMainHeader(mh)
	return nil
}

// Save finalizes the symbol table, optional extended-data section, and the
// main header, then delegates to the underlying container writer.
func (w *Writer) Save(dst io.Writer) error {
	if err := w.finalize(); err != nil {
		return err
	}
	return w.core.Save(dst)
}

// SaveToPath finalizes the container and atomically publishes it at path.
func (w *Writer) SaveToPath(path string) error {
	if err := w.finalize(); err != nil {
		return err
	}
	return w.core.SaveToPath(path)
}
