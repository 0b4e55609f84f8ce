package sd

import (
	"encoding/binary"
	"io"
	"math"
	"strings"

	"github.com/bpx-format/bpx/bpxerr"
)

// Encode serializes a top-level Object to w. It validates the entire tree
// first — refusing to emit any bytes — if any array or object anywhere in
// the tree holds more than 255 entries.
func Encode(w io.Writer, o *Object) error {
	if err := validateObject(o); err != nil {
		return err
	}
	return encodeObject(w, o)
}

func validateObject(o *Object) error {
	if o.Len() > maxEntries {
		return bpxerr.PropCountExceeded(o.Len())
	}
	for _, v := range o.entries {
		if err := validateValue(v); err != nil {
			return err
		}
	}
	return nil
}

func validateArray(a *Array) error {
	if a.Len() > maxEntries {
		return bpxerr.PropCountExceeded(a.Len())
	}
	for _, v := range a.items {
		if err := validateValue(v); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(v Value) error {
	switch v.kind {
	case KindArray:
		return validateArray(v.arr)
	case KindObject:
		return validateObject(v.obj)
	case KindString:
		if strings.IndexByte(v.str, 0) >= 0 {
			return bpxerr.Corruption("BPXSD string contains an embedded NUL")
		}
		return nil
	default:
		return nil
	}
}

func encodeObject(w io.Writer, o *Object) error {
	if _, err := w.Write([]byte{byte(o.Len())}); err != nil {
		return bpxerr.IO("sd-object-count", err)
	}
	for h, v := range o.entries {
		var hbuf [8]byte
		binary.LittleEndian.PutUint64(hbuf[:], h)
		if _, err := w.Write(hbuf[:]); err != nil {
			return bpxerr.IO("sd-object-hash", err)
		}
		if _, err := w.Write([]byte{byte(v.kind)}); err != nil {
			return bpxerr.IO("sd-object-type", err)
		}
		if err := encodeValuePayload(w, v); err != nil {
			return err
		}
	}
	return nil
}

func encodeArray(w io.Writer, a *Array) error {
	if _, err := w.Write([]byte{byte(a.Len())}); err != nil {
		return bpxerr.IO("sd-array-count", err)
	}
	for _, v := range a.items {
		if _, err := w.Write([]byte{byte(v.kind)}); err != nil {
			return bpxerr.IO("sd-array-type", err)
		}
		if err := encodeValuePayload(w, v); err != nil {
			return err
		}
	}
	return nil
}

func encodeValuePayload(w io.Writer, v Value) error {
	var buf [8]byte
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		b := byte(0)
		if v.b {
			b = 1
		}
		_, err := w.Write([]byte{b})
		return ioErr(err, "sd-bool")
	case KindU8:
		_, err := w.Write([]byte{byte(v.u64)})
		return ioErr(err, "sd-u8")
	case KindU16:
		binary.LittleEndian.PutUint16(buf[:2], uint16(v.u64))
		_, err := w.Write(buf[:2])
		return ioErr(err, "sd-u16")
	case KindU32:
		binary.LittleEndian.PutUint32(buf[:4], uint32(v.u64))
		_, err := w.Write(buf[:4])
		return ioErr(err, "sd-u32")
	case KindU64:
		binary.LittleEndian.PutUint64(buf[:8], v.u64)
		_, err := w.Write(buf[:8])
		return ioErr(err, "sd-u64")
	case KindI8:
		_, err := w.Write([]byte{byte(int8(v.i64))})
		return ioErr(err, "sd-i8")
	case KindI16:
		binary.LittleEndian.PutUint16(buf[:2], uint16(int16(v.i64)))
		_, err := w.Write(buf[:2])
		return ioErr(err, "sd-i16")
	case KindI32:
		binary.LittleEndian.PutUint32(buf[:4], uint32(int32(v.i64)))
		_, err := w.Write(buf[:4])
		return ioErr(err, "sd-i32")
	case KindI64:
		binary.LittleEndian.PutUint64(buf[:8], uint64(v.i64))
		_, err := w.Write(buf[:8])
		return ioErr(err, "sd-i64")
	case KindF32:
		binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(v.f32))
		_, err := w.Write(buf[:4])
		return ioErr(err, "sd-f32")
	case KindF64:
		binary.LittleEndian.PutUint64(buf[:8], math.Float64bits(v.f64))
		_, err := w.Write(buf[:8])
		return ioErr(err, "sd-f64")
	case KindString:
		if _, err := w.Write(append([]byte(v.str), 0)); err != nil {
			return bpxerr.IO("sd-string", err)
		}
		return nil
	case KindArray:
		return encodeArray(w, v.arr)
	case KindObject:
		return encodeObject(w, v.obj)
	default:
		return bpxerr.Corruption("unknown BPXSD type code")
	}
}

func ioErr(err error, op string) error {
	if err == nil {
		return nil
	}
	return bpxerr.IO(op, err)
}
