package bpx

import (
	"io"
	"math"
	"os"

	"github.com/bpx-format/bpx/bpxerr"
	"github.com/bpx-format/bpx/internal/checksum"
	"github.com/bpx-format/bpx/internal/codec"
	"github.com/bpx-format/bpx/internal/sectiondata"
	"github.com/google/renameio"
)

// Handle is an opaque index identifying a section within one Writer or
// Reader instance. It is valid only for the lifetime of the container
// object that issued it.
type Handle int

type pendingSection struct {
	header SectionHeader
	store  sectiondata.Store
}

// Writer assembles sections into a finalized BPX file via a two-pass
// finalize: payloads stream into a staging file first, then the headers
// (now known) and the staging file's bytes are emitted to the destination.
//
// Grounded on internal/squashfs's writer (teacher's own block-container
// writer that finalizes a superblock after streaming blocks).
type Writer struct {
	mainHeader        MainHeader
	sections          []*pendingSection
	compressThreshold *uint32
}

// NewWriter constructs an empty writer for the given variant type byte.
func NewWriter(variantType byte) *Writer {
	return &Writer{mainHeader: NewMainHeader(variantType)}
}

// SetMainHeader replaces the main header template. SectionCount, FileSize
// and Chksum are overwritten at Save regardless of what is set here.
func (w *Writer) SetMainHeader(h MainHeader) {
	w.mainHeader = h
}

// SetCompressThreshold overrides the implicit "compress only if size
// exceeds the section's prior csize" rule with an explicit byte threshold,
// per the Open Question in spec.md §9.
func (w *Writer) SetCompressThreshold(n uint32) {
	w.compressThreshold = &n
}

// CreateSection appends a new section with the template header, allocates
// its payload store (sized by capacityHint, 0 if unknown), and returns a
// stable handle.
func (w *Writer) CreateSection(h SectionHeader, capacityHint int64) (Handle, error) {
	store, err := sectiondata.New(capacityHint)
	if err != nil {
		return 0, bpxerr.IO("create-section", err)
	}
	w.sections = append(w.sections, &pendingSection{header: h, store: store})
	return Handle(len(w.sections) - 1), nil
}

// OpenSection borrows the payload store for mutation. The borrow is
// exclusive for as long as the caller holds it; it is invalidated by
// reopening the container.
func (w *Writer) OpenSection(h Handle) (sectiondata.Store, error) {
	if int(h) < 0 || int(h) >= len(w.sections) {
		return nil, bpxerr.Other("invalid section handle")
	}
	return w.sections[h].store, nil
}

// SectionCount returns the number of sections declared so far.
func (w *Writer) SectionCount() int { return len(w.sections) }

// effectiveFlags derives the stored flags for a section about to be
// written: at most one checksum bit is kept, weak taking precedence over
// CRC32 when both are requested; compression bits are kept only when size
// exceeds the effective threshold (an explicit override, or else the
// section's own prior Csize field as a pre-write hint).
func effectiveFlags(requested byte, size uint32, priorCsize uint32, threshold *uint32) byte {
	var result byte
	switch {
	case requested&FlagCheckWeak != 0:
		result = FlagCheckWeak
	case requested&FlagCheckCRC32 != 0:
		result = FlagCheckCRC32
	}
	compressBits := requested & (FlagCompressXZ | FlagCompressZlib)
	if compressBits != 0 {
		t := priorCsize
		if threshold != nil {
			t = *threshold
		}
		if size > t {
			result |= compressBits
		}
	}
	return result
}

func selectCompressor(flags byte) codec.Compressor {
	switch {
	case flags&FlagCompressXZ != 0:
		return codec.XZ
	case flags&FlagCompressZlib != 0:
		return codec.Zlib
	default:
		return nil
	}
}

// copyVerbatim streams exactly size bytes from source to sink unchanged,
// feeding tap as bytes pass, for sections with no compression bit set.
func copyVerbatim(source io.Reader, sink io.Writer, size uint32, tap checksum.Tap) (uint32, error) {
	var written uint32
	buf := make([]byte, 8*1024)
	remaining := int64(size)
	for remaining > 0 {
		chunk := buf
		if int64(len(chunk)) > remaining {
			chunk = chunk[:remaining]
		}
		n, err := io.ReadFull(source, chunk)
		if n > 0 {
			if _, terr := tap.Write(chunk[:n]); terr != nil {
				return 0, bpxerr.IO("copy-tap", terr)
			}
			wn, werr := sink.Write(chunk[:n])
			if werr != nil {
				return 0, bpxerr.IO("copy-write", werr)
			}
			written += uint32(wn)
		}
		remaining -= int64(n)
		if err != nil {
			if err == io.ErrUnexpectedEOF || err == io.EOF {
				return 0, bpxerr.Truncation("copy-verbatim")
			}
			return 0, bpxerr.IO("copy-read", err)
		}
	}
	return written, nil
}

// Save finalizes the container and writes it to dst.
func (w *Writer) Save(dst io.Writer) error {
	staging, err := os.CreateTemp("", "bpx-staging-*")
	if err != nil {
		return bpxerr.IO("staging-create", err)
	}
	defer func() {
		name := staging.Name()
		staging.Close()
		os.Remove(name)
	}()

	ptr := uint64(SizeMainHeader) + uint64(len(w.sections))*uint64(SizeSectionHeader)
	headers := make([]SectionHeader, len(w.sections))

	for i, sec := range w.sections {
		if _, err := sec.store.Seek(0, io.SeekStart); err != nil {
			return bpxerr.IO("section-rewind", err)
		}
		size64 := sec.store.Len()
		if size64 > math.MaxUint32 {
			return bpxerr.Capacity(uint64(size64))
		}
		size := uint32(size64)

		h := sec.header
		eff := effectiveFlags(h.Flags, size, h.Csize, w.compressThreshold)
		tap := checksum.ForFlags(eff)

		var csize uint32
		if comp := selectCompressor(eff); comp != nil {
			csize, err = comp.Deflate(sec.store, staging, size, tap)
		} else {
			csize, err = copyVerbatim(sec.store, staging, size, tap)
		}
		if err != nil {
			return err
		}

		var recordedChksum uint32
		if eff&(FlagCheckWeak|FlagCheckCRC32) != 0 {
			recordedChksum = tap.Sum()
		}

		h.Size = size
		h.Csize = csize
		h.Chksum = recordedChksum
		h.Flags = eff
		h.Pointer = ptr
		ptr += uint64(csize)
		headers[i] = h
	}

	w.mainHeader.SectionCount = uint32(len(headers))
	w.mainHeader.FileSize = ptr
	chk, err := headerChecksum(w.mainHeader, headers)
	if err != nil {
		return err
	}
	w.mainHeader.Chksum = chk

	mb, err := w.mainHeader.encode()
	if err != nil {
		return err
	}
	if _, err := dst.Write(mb); err != nil {
		return bpxerr.IO("main-header-write", err)
	}
	for _, h := range headers {
		hb, err := h.encode()
		if err != nil {
			return err
		}
		if _, err := dst.Write(hb); err != nil {
			return bpxerr.IO("section-header-write", err)
		}
	}
	if _, err := staging.Seek(0, io.SeekStart); err != nil {
		return bpxerr.IO("staging-rewind", err)
	}
	if _, err := io.Copy(dst, staging); err != nil {
		return bpxerr.IO("staging-copy", err)
	}
	return nil
}

// SaveToPath finalizes the container and atomically publishes it at path,
// so a reader never observes a partially written file. Grounded on the
// teacher's repeated renameio.TempFile / CloseAtomicallyReplace pattern
// (cmd/distri/build.go, internal/install/install.go).
func (w *Writer) SaveToPath(path string) error {
	pf, err := renameio.TempFile("", path)
	if err != nil {
		return bpxerr.IO("save-to-path-temp", err)
	}
	defer pf.Cleanup()
	if err := w.Save(pf); err != nil {
		return err
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return bpxerr.IO("save-to-path-replace", err)
	}
	return nil
}
