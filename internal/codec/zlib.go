package codec

import (
	"bufio"
	"io"

	"github.com/bpx-format/bpx/bpxerr"
	"github.com/bpx-format/bpx/internal/checksum"
	"github.com/klauspost/compress/zlib"
)

// zlibCodec wraps github.com/klauspost/compress/zlib, a wire-compatible,
// faster drop-in for compress/zlib — the library the teacher's squashfs
// writer reaches for to compress data blocks.
type zlibCodec struct{}

func (zlibCodec) Deflate(source io.Reader, sink io.Writer, inflatedSize uint32, tap checksum.Tap) (uint32, error) {
	cw := &countingWriter{w: bufio.NewWriterSize(sink, ringOut)}
	flushable := cw.w.(*bufio.Writer)

	zw, err := zlib.NewWriterLevel(cw, zlib.DefaultCompression)
	if err != nil {
		return 0, bpxerr.Deflate("zlib-init", err)
	}

	err = copyExactly(source, inflatedSize, ringIn, "zlib-deflate", func(chunk []byte) error {
		if _, werr := tap.Write(chunk); werr != nil {
			return bpxerr.Deflate("zlib-tap", werr)
		}
		if _, werr := zw.Write(chunk); werr != nil {
			return bpxerr.Deflate("zlib-write", werr)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, bpxerr.Deflate("zlib-close", err)
	}
	if err := flushable.Flush(); err != nil {
		return 0, bpxerr.Deflate("zlib-flush", err)
	}
	return cw.n, nil
}

func (zlibCodec) Inflate(source io.Reader, sink io.Writer, deflatedSize uint32, tap checksum.Tap) error {
	limited := io.LimitReader(source, int64(deflatedSize))
	zr, err := zlib.NewReader(bufio.NewReaderSize(limited, ringIn))
	if err != nil {
		return bpxerr.Inflate("zlib-init", err)
	}
	defer zr.Close()

	buf := make([]byte, ringOut)
	for {
		n, rerr := zr.Read(buf)
		if n > 0 {
			if _, werr := tap.Write(buf[:n]); werr != nil {
				return bpxerr.Inflate("zlib-tap", werr)
			}
			if _, werr := sink.Write(buf[:n]); werr != nil {
				return bpxerr.Inflate("zlib-write", werr)
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return bpxerr.Inflate("zlib-read", rerr)
		}
	}
}
