package codec

import (
	"bytes"
	"io"
	"runtime"

	"github.com/bpx-format/bpx/bpxerr"
	"github.com/bpx-format/bpx/internal/checksum"
	"github.com/ulikunitz/xz"
	"golang.org/x/sync/errgroup"
)

// xzBlockSize is the size of each independently-compressed XZ block. Each
// block is its own complete xz stream, so decoding can tolerate concatenated
// streams simply by looping xz.NewReader calls over the same source.
const xzBlockSize = 8 << 20 // 8 MiB

// xzCodec wraps github.com/ulikunitz/xz. The outer checksum tap is
// authoritative, so the xz stream itself carries no integrity check.
type xzCodec struct{}

// maxXZWorkers caps concurrent block encoders at the lesser of the host's
// logical CPU count and 8, per spec.
func maxXZWorkers() int {
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (xzCodec) Deflate(source io.Reader, sink io.Writer, inflatedSize uint32, tap checksum.Tap) (uint32, error) {
	type block struct {
		raw []byte
		out []byte
	}

	// Blocks are read sequentially so the checksum tap observes the
	// uncompressed stream in order; each block is then handed to a worker
	// for independent compression.
	var blocks []*block
	remaining := int64(inflatedSize)
	for remaining > 0 {
		n := int64(xzBlockSize)
		if n > remaining {
			n = remaining
		}
		raw := make([]byte, 0, n)
		if err := copyExactly(source, uint32(n), ringIn, "xz-deflate-read", func(chunk []byte) error {
			if _, err := tap.Write(chunk); err != nil {
				return err
			}
			raw = append(raw, chunk...)
			return nil
		}); err != nil {
			return 0, err
		}
		blocks = append(blocks, &block{raw: raw})
		remaining -= n
	}

	if len(blocks) == 0 {
		return 0, nil
	}

	var eg errgroup.Group
	sem := make(chan struct{}, maxXZWorkers())
	for _, b := range blocks {
		b := b
		sem <- struct{}{}
		eg.Go(func() error {
			defer func() { <-sem }()
			var buf bytes.Buffer
			cfg := xz.WriterConfig{CheckSum: xz.CRCNone}
			xw, err := cfg.NewWriter(&buf)
			if err != nil {
				return bpxerr.Deflate("xz-init", err)
			}
			if _, err := xw.Write(b.raw); err != nil {
				return bpxerr.Deflate("xz-write", err)
			}
			if err := xw.Close(); err != nil {
				return bpxerr.Deflate("xz-close", err)
			}
			b.out = buf.Bytes()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}

	var total uint32
	for _, b := range blocks {
		n, err := sink.Write(b.out)
		if err != nil {
			return 0, bpxerr.IO("xz-sink-write", err)
		}
		total += uint32(n)
	}
	return total, nil
}

func (xzCodec) Inflate(source io.Reader, sink io.Writer, deflatedSize uint32, tap checksum.Tap) error {
	limited := io.LimitReader(source, int64(deflatedSize))
	buf := make([]byte, ringOut)
	for {
		xr, err := xz.NewReader(limited)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return bpxerr.Inflate("xz-init", err)
		}
		for {
			n, rerr := xr.Read(buf)
			if n > 0 {
				if _, werr := tap.Write(buf[:n]); werr != nil {
					return bpxerr.Inflate("xz-tap", werr)
				}
				if _, werr := sink.Write(buf[:n]); werr != nil {
					return bpxerr.Inflate("xz-write", werr)
				}
			}
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				return bpxerr.Inflate("xz-read", rerr)
			}
		}
	}
}
