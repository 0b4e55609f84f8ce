// Package checksum implements the two running-digest taps the container
// pipeline threads through its read and write stages: a commutative weak
// sum and a standard CRC-32. Both are consumed (finalized) exactly once,
// mirroring how the pipeline feeds them uncompressed bytes as they pass a
// single fixed point — before compression on write, after decompression on
// read — and never lets the compressor itself see the tap.
package checksum

import "hash/crc32"

// Tap accumulates a running 32-bit digest over pushed byte slices. Callers
// push zero or more slices via Write, then call Sum once to finalize.
type Tap interface {
	// Write pushes the next slice of the uncompressed byte stream into the
	// digest. It never returns an error.
	Write(p []byte) (int, error)

	// Sum finalizes and returns the accumulated digest.
	Sum() uint32
}

// Weak is the arithmetic sum of every byte, wrapping modulo 2^32. It is
// commutative and associative, and cheap enough to run unconditionally.
type Weak struct {
	sum uint32
}

func NewWeak() *Weak { return &Weak{} }

func (w *Weak) Write(p []byte) (int, error) {
	for _, b := range p {
		w.sum += uint32(b)
	}
	return len(p), nil
}

func (w *Weak) Sum() uint32 { return w.sum }

// CRC32 is the standard IEEE CRC-32 over the pushed byte stream.
type CRC32 struct {
	crc uint32
}

func NewCRC32() *CRC32 { return &CRC32{} }

func (c *CRC32) Write(p []byte) (int, error) {
	c.crc = crc32.Update(c.crc, crc32.IEEETable, p)
	return len(p), nil
}

func (c *CRC32) Sum() uint32 { return c.crc }

// Flag bits recognized in a section header's flags byte (see bpx.Flag*).
const (
	FlagWeak  byte = 1 << 0
	FlagCRC32 byte = 1 << 1
)

// ForFlags selects the tap implied by flags: weak checksum takes precedence
// over CRC32 when both bits are set, matching the effective-flag derivation
// in the container writer. When neither checksum bit is set, a Weak tap is
// still returned (the pipeline always threads a tap through; the caller
// discards its result and records chksum=0).
func ForFlags(flags byte) Tap {
	if flags&FlagWeak != 0 {
		return NewWeak()
	}
	if flags&FlagCRC32 != 0 {
		return NewCRC32()
	}
	return NewWeak()
}
