package bpx

import (
	"errors"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/bpx-format/bpx/bpxerr"
	"github.com/bpx-format/bpx/internal/sectiondata"
)

// StringSection is a logical view over a raw section whose payload is a
// concatenation of zero-terminated UTF-8 byte sequences.
type StringSection struct {
	store sectiondata.Store
	cache map[uint32]string
}

// NewStringSection wraps store, which is assumed to hold (or will hold)
// nothing but zero-terminated UTF-8 strings.
func NewStringSection(store sectiondata.Store) *StringSection {
	return &StringSection{store: store, cache: make(map[uint32]string)}
}

// Put appends str as UTF-8 bytes followed by a zero terminator, returning
// the byte offset of the new string.
func (s *StringSection) Put(str string) (uint32, error) {
	if strings.IndexByte(str, 0) >= 0 {
		return 0, bpxerr.Corruption("string contains an embedded NUL")
	}

	offset := s.store.Len()
	if offset > math.MaxUint32 {
		return 0, bpxerr.Capacity(uint64(offset))
	}

	if _, err := s.store.Seek(0, io.SeekEnd); err != nil {
		return 0, bpxerr.IO("string-put-seek", err)
	}
	if _, err := s.store.Write(append([]byte(str), 0)); err != nil {
		return 0, bpxerr.IO("string-put-write", err)
	}

	s.cache[uint32(offset)] = str
	return uint32(offset), nil
}

// Get decodes the zero-terminated string at offset. Decoded strings are
// cached for the lifetime of the StringSection.
func (s *StringSection) Get(offset uint32) (string, error) {
	if str, ok := s.cache[offset]; ok {
		return str, nil
	}

	if _, err := s.store.Seek(int64(offset), io.SeekStart); err != nil {
		return "", bpxerr.IO("string-get-seek", err)
	}

	var buf []byte
	one := make([]byte, 1)
	for {
		n, err := s.store.Read(one)
		if n == 1 {
			if one[0] == 0 {
				break
			}
			buf = append(buf, one[0])
		}
		if err != nil {
			if err == io.EOF {
				return "", bpxerr.Truncation("string-get")
			}
			return "", bpxerr.IO("string-get-read", err)
		}
	}

	if !utf8.Valid(buf) {
		return "", bpxerr.Utf8("string-get", errors.New("invalid utf-8 in string section"))
	}

	str := string(buf)
	s.cache[offset] = str
	return str, nil
}
