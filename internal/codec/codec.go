// Package codec implements the two streaming compressor pairs the container
// pipeline uses: XZ (github.com/ulikunitz/xz) and zlib
// (github.com/klauspost/compress/zlib). Both operate on fixed-size ring
// buffers and never materialize a whole section payload in one allocation
// larger than a single block.
package codec

import (
	"io"

	"github.com/bpx-format/bpx/bpxerr"
	"github.com/bpx-format/bpx/internal/checksum"
)

// ringIn and ringOut size the streaming buffers, per spec: ~8 KiB in,
// ~8-16 KiB out.
const (
	ringIn  = 8 * 1024
	ringOut = 16 * 1024
)

// Compressor is the symmetric deflate/inflate contract every codec
// implements.
type Compressor interface {
	// Deflate reads exactly inflatedSize bytes from source, feeding them to
	// tap as they arrive, and writes the compressed form to sink. It
	// returns the number of compressed bytes written.
	Deflate(source io.Reader, sink io.Writer, inflatedSize uint32, tap checksum.Tap) (csize uint32, err error)

	// Inflate reads exactly deflatedSize bytes from source and writes the
	// decompressed form to sink, feeding output bytes to tap as they are
	// produced.
	Inflate(source io.Reader, sink io.Writer, deflatedSize uint32, tap checksum.Tap) error
}

// XZ and Zlib are the two supported codecs, selected by the container
// writer/reader from a section header's flags byte.
var (
	XZ   Compressor = xzCodec{}
	Zlib Compressor = zlibCodec{}
)

// copyExactly reads exactly n bytes from src in ring-sized chunks, calling
// onChunk for each one (in order). It reports Truncation if src runs dry
// early, and wraps any other read error as IO tagged with op.
func copyExactly(src io.Reader, n uint32, bufSize int, op string, onChunk func([]byte) error) error {
	remaining := int64(n)
	buf := make([]byte, bufSize)
	for remaining > 0 {
		chunk := buf
		if int64(len(chunk)) > remaining {
			chunk = chunk[:remaining]
		}
		read, err := io.ReadFull(src, chunk)
		if read > 0 {
			if cerr := onChunk(chunk[:read]); cerr != nil {
				return cerr
			}
		}
		remaining -= int64(read)
		if err != nil {
			if err == io.ErrUnexpectedEOF || err == io.EOF {
				return bpxerr.Truncation(op)
			}
			return bpxerr.IO(op, err)
		}
	}
	return nil
}

// countingWriter wraps a sink to report how many bytes actually made it
// through, since compressors may buffer internally before flushing.
type countingWriter struct {
	w io.Writer
	n uint32
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += uint32(n)
	return n, err
}
