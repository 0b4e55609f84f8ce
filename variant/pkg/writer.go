package pkgvariant

import (
	"encoding/binary"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bpx-format/bpx"
	"github.com/bpx-format/bpx/bpxerr"
	"github.com/bpx-format/bpx/internal/sectiondata"
	"github.com/bpx-format/bpx/sd"
)

// Writer builds a package-variant container: a strings section, an
// optional metadata object, and a sequence of data sections holding packed
// files. Grounded on bpx.Writer's two-pass finalize, reused unmodified here.
type Writer struct {
	core        *bpx.Writer
	typeExt     TypeExt
	strings     *bpx.StringSection
	stringsH    bpx.Handle
	metadata    *sd.Object
	curData     sectiondata.Store
	curDataH    bpx.Handle
	curDataSize int64
	haveData    bool
}

// NewWriter constructs an empty package-variant writer for the given
// architecture and platform.
func NewWriter(typeExt TypeExt) (*Writer, error) {
	core := bpx.NewWriter(bpx.TypePackage)
	stringsH, err := core.CreateSection(bpx.SectionHeader{
		Type:  SectionStrings,
		Flags: bpx.FlagCheckWeak | bpx.FlagCompressZlib,
	}, 0)
	if err != nil {
		return nil, err
	}
	stringsStore, err := core.OpenSection(stringsH)
	if err != nil {
		return nil, err
	}
	return &Writer{
		core:     core,
		typeExt:  typeExt,
		strings:  bpx.NewStringSection(stringsStore),
		stringsH: stringsH,
	}, nil
}

// SetMetadata attaches a BPXSD metadata object, written into its own
// section at Save time.
func (w *Writer) SetMetadata(o *sd.Object) {
	w.metadata = o
}

// AddFile packs size bytes read from r under virtual path name. The record
// header always starts a fresh data section if the current one has no room
// left for it; the payload itself is streamed in chunks and rolls onto
// successive data sections, without a new header, whenever the current
// section reaches maxDataSectionSize — so a single file may span section
// boundaries, per spec.
func (w *Writer) AddFile(name string, r io.Reader, size int64) error {
	nameOffset, err := w.strings.Put(name)
	if err != nil {
		return err
	}

	if !w.haveData || w.curDataSize+recordHeaderSize > maxDataSectionSize {
		if err := w.openNewDataSection(); err != nil {
			return err
		}
	}

	var rec [recordHeaderSize]byte
	binary.LittleEndian.PutUint64(rec[0:8], uint64(size))
	binary.LittleEndian.PutUint32(rec[8:12], nameOffset)
	if _, err := w.curData.Write(rec[:]); err != nil {
		return bpxerr.IO("pkg-record-write", err)
	}
	w.curDataSize += recordHeaderSize

	remaining := size
	for remaining > 0 {
		if w.curDataSize >= maxDataSectionSize {
			if err := w.openNewDataSection(); err != nil {
				return err
			}
		}
		chunk := maxDataSectionSize - w.curDataSize
		if chunk > remaining {
			chunk = remaining
		}
		n, err := io.CopyN(w.curData, r, chunk)
		if err != nil {
			return bpxerr.IO("pkg-payload-write", err)
		}
		w.curDataSize += n
		remaining -= n
	}
	return nil
}

func (w *Writer) openNewDataSection() error {
	h, err := w.core.CreateSection(bpx.SectionHeader{
		Type:  SectionData,
		Flags: bpx.FlagCheckCRC32 | bpx.FlagCompressXZ,
	}, 0)
	if err != nil {
		return err
	}
	store, err := w.core.OpenSection(h)
	if err != nil {
		return err
	}
	w.curDataH = h
	w.curData = store
	w.curDataSize = 0
	w.haveData = true
	return nil
}

// AddDir packs every regular file under root, using its slash-separated
// path relative to root as the virtual path. Directories, symlinks and
// other non-regular entries are skipped.
func (w *Writer) AddDir(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return w.AddFile(filepath.ToSlash(rel), f, info.Size())
	})
}

// finalize writes the metadata section (if set) and the main header's
// type-ext field. It must run exactly once, before the underlying writer is
// asked to save.
func (w *Writer) finalize() error {
	if w.metadata != nil {
		h, err := w.core.CreateSection(bpx.SectionHeader{
			Type:  SectionMetadata,
			Flags: bpx.FlagCheckWeak | bpx.FlagCompressZlib,
		}, 0)
		if err != nil {
			return err
		}
		store, err := w.core.OpenSection(h)
		if err != nil {
			return err
		}
		if err := sd.Encode(store, w.metadata); err != nil {
			return err
		}
		w.metadata = nil
	}

	mh := bpx.NewMainHeader(bpx.TypePackage)
	mh.TypeExt = w.typeExt.encode()
	w.core.SetMainHeader(mh)
	return nil
}

// Save finalizes the metadata section (if set) and the main header's
// type-ext field, then delegates to the underlying container writer.
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
