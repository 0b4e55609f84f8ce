package sectiondata

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// spillStore backs a section with a temporary file, auto-deleted on Close.
// Grounded on the teacher's pervasive golang.org/x/sys/unix use for direct
// file-descriptor control (internal/squashfs/writer.go, cmd/distri/pack.go).
type spillStore struct {
	f      *os.File
	length int64
}

func newSpillStore(capacityHint int64) (*spillStore, error) {
	f, err := os.CreateTemp("", "bpx-section-*")
	if err != nil {
		return nil, err
	}
	if capacityHint > 0 {
		// Best-effort preallocation hint; logical length is still tracked
		// independently below, so this never changes observable Len().
		_ = unix.Ftruncate(int(f.Fd()), capacityHint)
	}
	return &spillStore{f: f}, nil
}

func (s *spillStore) Write(p []byte) (int, error) {
	n, err := s.f.Write(p)
	if n > 0 {
		pos, serr := s.f.Seek(0, io.SeekCurrent)
		if serr == nil && pos > s.length {
			s.length = pos
		}
	}
	return n, err
}

func (s *spillStore) Read(p []byte) (int, error) {
	return s.f.Read(p)
}

func (s *spillStore) Seek(offset int64, whence int) (int64, error) {
	pos, err := s.f.Seek(offset, whence)
	if err == nil && pos > s.length {
		s.length = pos
	}
	return pos, err
}

func (s *spillStore) Len() int64 { return s.length }

func (s *spillStore) LoadAll() ([]byte, error) {
	cur, err := s.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	defer s.f.Seek(cur, io.SeekStart)

	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, s.length)
	if _, err := io.ReadFull(s.f, buf); err != nil && err != io.EOF {
		return nil, err
	}
	return buf, nil
}

func (s *spillStore) Close() error {
	name := s.f.Name()
	err := s.f.Close()
	if rerr := os.Remove(name); rerr != nil && err == nil {
		err = rerr
	}
	return err
}
