package pkgvariant

import (
	"encoding/binary"
	"io"

	"github.com/bpx-format/bpx"
	"github.com/bpx-format/bpx/bpxerr"
	"github.com/bpx-format/bpx/sd"
)

// Reader parses a package-variant container: its strings section, optional
// metadata object, and the concatenated data-section byte stream.
type Reader struct {
	core     *bpx.Reader
	typeExt  TypeExt
	strings  *bpx.StringSection
	metadata *sd.Object
	data     []byte // concatenated payload of every data section, in file order
}

// Open parses r as a package-variant container.
func Open(r io.ReaderAt) (*Reader, error) {
	core, err := bpx.New(r)
	if err != nil {
		return nil, err
	}
	if core.MainHeader().Type != bpx.TypePackage {
		return nil, bpxerr.Unsupported("not a package-variant container")
	}

	stringsH, ok := core.FindSectionByType(SectionStrings)
	if !ok {
		return nil, bpxerr.Corruption("package variant missing strings section")
	}
	stringsStore, err := core.OpenSection(stringsH)
	if err != nil {
		return nil, err
	}

	rd := &Reader{
		core:    core,
		typeExt: decodeTypeExt(core.MainHeader().TypeExt),
		strings: bpx.NewStringSection(stringsStore),
	}

	if metaH, ok := core.FindSectionByType(SectionMetadata); ok {
		store, err := core.OpenSection(metaH)
		if err != nil {
			return nil, err
		}
		obj, err := sd.Decode(store)
		if err != nil {
			return nil, err
		}
		rd.metadata = obj
	}

	var data []byte
	for _, h := range core.FindAllSectionsOfType(SectionData) {
		store, err := core.OpenSection(h)
		if err != nil {
			return nil, err
		}
		chunk, err := store.LoadAll()
		if err != nil {
			return nil, bpxerr.IO("pkg-data-load", err)
		}
		data = append(data, chunk...)
	}
	rd.data = data

	return rd, nil
}

// TypeExt returns the parsed architecture/platform/app-code triple.
func (rd *Reader) TypeExt() TypeExt { return rd.typeExt }

// Metadata returns the BPXSD metadata object, or nil if the container
// carries none.
func (rd *Reader) Metadata() *sd.Object { return rd.metadata }

// ListFiles walks the concatenated data stream and returns every packed
// file's virtual path and size, in the order they were written.
func (rd *Reader) ListFiles() ([]FileEntry, error) {
	var out []FileEntry
	off := 0
	for off < len(rd.data) {
		size, nameOffset, next, err := rd.readRecordHeader(off)
		if err != nil {
			return nil, err
		}
		name, err := rd.strings.Get(nameOffset)
		if err != nil {
			return nil, err
		}
		out = append(out, FileEntry{Path: name, Size: size})
		off = next + int(size)
		if off > len(rd.data) {
			return nil, bpxerr.Truncation("pkg-data-stream")
		}
	}
	return out, nil
}

// OpenFile returns the payload bytes of the named file.
func (rd *Reader) OpenFile(name string) ([]byte, error) {
	off := 0
	for off < len(rd.data) {
		size, nameOffset, next, err := rd.readRecordHeader(off)
		if err != nil {
			return nil, err
		}
		entryName, err := rd.strings.Get(nameOffset)
		if err != nil {
			return nil, err
		}
		if next+int(size) > len(rd.data) {
			return nil, bpxerr.Truncation("pkg-data-stream")
		}
		if entryName == name {
			return rd.data[next : next+int(size)], nil
		}
		off = next + int(size)
	}
	return nil, bpxerr.MissingProp(name)
}

// readRecordHeader decodes the fixed record prefix at off, returning the
// declared size, the strings-section offset of the file's name, and the
// byte offset immediately following the header.
func (rd *Reader) readRecordHeader(off int) (size uint64, nameOffset uint32, next int, err error) {
	if off+recordHeaderSize > len(rd.data) {
		return 0, 0, 0, bpxerr.Truncation("pkg-record-header")
	}
	size = binary.LittleEndian.Uint64(rd.data[off : off+8])
	nameOffset = binary.LittleEndian.Uint32(rd.data[off+8 : off+12])
	return size, nameOffset, off + recordHeaderSize, nil
}
