package sectiondata

import (
	"io"

	"github.com/orcaman/writerseeker"
)

// memoryStore backs a section with an in-memory growable buffer, using
// github.com/orcaman/writerseeker for the underlying growing
// io.WriteSeeker. The package tracks its own logical cursor and length on
// top, since writerseeker.WriterSeeker only exposes Write/Seek directly
// (Read access comes from re-snapshotting the buffer via BytesReader).
type memoryStore struct {
	ws     writerseeker.WriterSeeker
	pos    int64
	length int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{}
}

func (m *memoryStore) Write(p []byte) (int, error) {
	if _, err := m.ws.Seek(m.pos, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := m.ws.Write(p)
	m.pos += int64(n)
	if m.pos > m.length {
		m.length = m.pos
	}
	return n, err
}

func (m *memoryStore) Read(p []byte) (int, error) {
	if m.pos >= m.length {
		return 0, io.EOF
	}
	br := m.ws.BytesReader()
	if _, err := br.Seek(m.pos, io.SeekStart); err != nil {
		return 0, err
	}
	max := m.length - m.pos
	if int64(len(p)) > max {
		p = p[:max]
	}
	n, err := br.Read(p)
	m.pos += int64(n)
	return n, err
}

func (m *memoryStore) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = m.pos + offset
	case io.SeekEnd:
		newPos = m.length + offset
	default:
		return 0, io.ErrUnexpectedEOF
	}
	if newPos < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	m.pos = newPos
	if m.pos > m.length {
		m.length = m.pos
	}
	return m.pos, nil
}

func (m *memoryStore) Len() int64 { return m.length }

func (m *memoryStore) LoadAll() ([]byte, error) {
	br := m.ws.BytesReader()
	if _, err := br.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, m.length)
	if _, err := io.ReadFull(br, buf); err != nil && err != io.EOF {
		return nil, err
	}
	return buf, nil
}

func (m *memoryStore) Close() error { return nil }
