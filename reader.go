package bpx

import (
	"io"

	"github.com/bpx-format/bpx/bpxerr"
	"github.com/bpx-format/bpx/internal/checksum"
	"github.com/bpx-format/bpx/internal/codec"
	"github.com/bpx-format/bpx/internal/sectiondata"
)

// Reader parses a BPX file's headers eagerly and materializes section
// payloads lazily, on first open. Grounded on internal/squashfs.Reader,
// which takes an io.ReaderAt and slices it with io.NewSectionReader rather
// than seeking a shared cursor.
type Reader struct {
	r        io.ReaderAt
	main     MainHeader
	sections []SectionHeader
	cache    map[int]sectiondata.Store
}

// New parses the main header, validates the signature, rejects unknown
// versions, reads all section headers, then verifies the header-integrity
// checksum over the main header and every section header.
func New(r io.ReaderAt) (*Reader, error) {
	main, err := decodeMainHeader(io.NewSectionReader(r, 0, SizeMainHeader))
	if err != nil {
		return nil, err
	}
	if main.Signature != Signature {
		return nil, bpxerr.Corruption("bad signature")
	}
	if main.Version != CurrentVersion {
		return nil, bpxerr.Unsupported("unsupported version")
	}

	sections := make([]SectionHeader, main.SectionCount)
	for i := uint32(0); i < main.SectionCount; i++ {
		off := int64(SizeMainHeader) + int64(i)*int64(SizeSectionHeader)
		sh, err := decodeSectionHeader(io.NewSectionReader(r, off, SizeSectionHeader))
		if err != nil {
			return nil, err
		}
		sections[i] = sh
	}

	wantChk, err := headerChecksum(main, sections)
	if err != nil {
		return nil, err
	}
	if wantChk != main.Chksum {
		return nil, bpxerr.Checksum(main.Chksum, wantChk)
	}

	return &Reader{
		r:        r,
		main:     main,
		sections: sections,
		cache:    make(map[int]sectiondata.Store),
	}, nil
}

// MainHeader returns the parsed main header.
func (rd *Reader) MainHeader() MainHeader { return rd.main }

// SectionCount returns the number of sections in the file.
func (rd *Reader) SectionCount() int { return len(rd.sections) }

// SectionHeader returns the header for the section at handle.
func (rd *Reader) SectionHeader(h Handle) (SectionHeader, error) {
	if int(h) < 0 || int(h) >= len(rd.sections) {
		return SectionHeader{}, bpxerr.Other("invalid section handle")
	}
	return rd.sections[h], nil
}

// FindSectionByType returns the first handle whose header type equals t.
func (rd *Reader) FindSectionByType(t byte) (Handle, bool) {
	for i, sh := range rd.sections {
		if sh.Type == t {
			return Handle(i), true
		}
	}
	return 0, false
}

// FindAllSectionsOfType returns all handles whose header type equals t, in
// file order.
func (rd *Reader) FindAllSectionsOfType(t byte) []Handle {
	var out []Handle
	for i, sh := range rd.sections {
		if sh.Type == t {
			out = append(out, Handle(i))
		}
	}
	return out
}

// OpenSection lazily materializes the section's payload: seeks to Pointer,
// feeds exactly Csize bytes through the appropriate inflate (or a straight
// copy) into a freshly allocated section-data store, verifying the checksum
// against Chksum. Subsequent opens return the cached store.
func (rd *Reader) OpenSection(h Handle) (sectiondata.Store, error) {
	if int(h) < 0 || int(h) >= len(rd.sections) {
		return nil, bpxerr.Other("invalid section handle")
	}
	if store, ok := rd.cache[int(h)]; ok {
		return store, nil
	}

	sh := rd.sections[h]
	src := io.NewSectionReader(rd.r, int64(sh.Pointer), int64(sh.Csize))

	store, err := sectiondata.New(int64(sh.Size))
	if err != nil {
		return nil, bpxerr.IO("open-section", err)
	}

	tap := checksum.ForFlags(sh.Flags)
	if comp := selectCompressor(sh.Flags); comp != nil {
		err = comp.Inflate(src, store, sh.Csize, tap)
	} else {
		_, err = copyVerbatim(src, store, sh.Csize, tap)
	}
	if err != nil {
		return nil, err
	}

	if sh.Flags&(FlagCheckWeak|FlagCheckCRC32) != 0 {
		if got := tap.Sum(); got != sh.Chksum {
			return nil, bpxerr.Checksum(sh.Chksum, got)
		}
	}

	if _, err := store.Seek(0, io.SeekStart); err != nil {
		return nil, bpxerr.IO("open-section-rewind", err)
	}
	rd.cache[int(h)] = store
	return store, nil
}
