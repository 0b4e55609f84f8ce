package sd

import (
	"encoding/binary"
	"io"
	"math"
	"unicode/utf8"

	"github.com/bpx-format/bpx/bpxerr"
)

// Decode parses a top-level Object from r.
func Decode(r io.Reader) (*Object, error) {
	return decodeObject(r)
}

func decodeObject(r io.Reader) (*Object, error) {
	n, err := readByte(r, "sd-object-count")
	if err != nil {
		return nil, err
	}
	o := NewObject()
	var hbuf [8]byte
	for i := 0; i < int(n); i++ {
		if _, err := io.ReadFull(r, hbuf[:]); err != nil {
			return nil, truncErr(err, "sd-object-hash")
		}
		h := binary.LittleEndian.Uint64(hbuf[:])
		kind, err := readByte(r, "sd-object-type")
		if err != nil {
			return nil, err
		}
		v, err := decodeValuePayload(r, Kind(kind))
		if err != nil {
			return nil, err
		}
		if err := o.SetHash(h, v); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func decodeArray(r io.Reader) (*Array, error) {
	n, err := readByte(r, "sd-array-count")
	if err != nil {
		return nil, err
	}
	a := NewArray()
	for i := 0; i < int(n); i++ {
		kind, err := readByte(r, "sd-array-type")
		if err != nil {
			return nil, err
		}
		v, err := decodeValuePayload(r, Kind(kind))
		if err != nil {
			return nil, err
		}
		if err := a.Append(v); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func decodeValuePayload(r io.Reader, kind Kind) (Value, error) {
	var buf [8]byte
	switch kind {
	case KindNull:
		return Null(), nil
	case KindBool:
		b, err := readByte(r, "sd-bool")
		if err != nil {
			return Value{}, err
		}
		return Bool(b != 0), nil
	case KindU8:
		b, err := readByte(r, "sd-u8")
		if err != nil {
			return Value{}, err
		}
		return U8(b), nil
	case KindU16:
		if _, err := io.ReadFull(r, buf[:2]); err != nil {
			return Value{}, truncErr(err, "sd-u16")
		}
		return U16(binary.LittleEndian.Uint16(buf[:2])), nil
	case KindU32:
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return Value{}, truncErr(err, "sd-u32")
		}
		return U32(binary.LittleEndian.Uint32(buf[:4])), nil
	case KindU64:
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return Value{}, truncErr(err, "sd-u64")
		}
		return U64(binary.LittleEndian.Uint64(buf[:8])), nil
	case KindI8:
		b, err := readByte(r, "sd-i8")
		if err != nil {
			return Value{}, err
		}
		return I8(int8(b)), nil
	case KindI16:
		if _, err := io.ReadFull(r, buf[:2]); err != nil {
			return Value{}, truncErr(err, "sd-i16")
		}
		return I16(int16(binary.LittleEndian.Uint16(buf[:2]))), nil
	case KindI32:
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return Value{}, truncErr(err, "sd-i32")
		}
		return I32(int32(binary.LittleEndian.Uint32(buf[:4]))), nil
	case KindI64:
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return Value{}, truncErr(err, "sd-i64")
		}
		return I64(int64(binary.LittleEndian.Uint64(buf[:8]))), nil
	case KindF32:
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return Value{}, truncErr(err, "sd-f32")
		}
		return F32(math.Float32frombits(binary.LittleEndian.Uint32(buf[:4]))), nil
	case KindF64:
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return Value{}, truncErr(err, "sd-f64")
		}
		return F64(math.Float64frombits(binary.LittleEndian.Uint64(buf[:8]))), nil
	case KindString:
		s, err := readCString(r)
		if err != nil {
			return Value{}, err
		}
		return Str(s), nil
	case KindArray:
		a, err := decodeArray(r)
		if err != nil {
			return Value{}, err
		}
		return Arr(a), nil
	case KindObject:
		o, err := decodeObject(r)
		if err != nil {
			return Value{}, err
		}
		return Obj(o), nil
	default:
		return Value{}, bpxerr.Corruption("unknown BPXSD type code")
	}
}

// readCString reads a NUL-terminated string one byte at a time and checks
// its contents are valid UTF-8 once the terminator is found.
func readCString(r io.Reader) (string, error) {
	var buf []byte
	var b [1]byte
	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return "", truncErr(err, "sd-string")
		}
		if b[0] == 0 {
			break
		}
		buf = append(buf, b[0])
	}
	if !utf8.Valid(buf) {
		return "", bpxerr.Utf8("sd-string", nil)
	}
	return string(buf), nil
}

func readByte(r io.Reader, op string) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, truncErr(err, op)
	}
	return b[0], nil
}

func truncErr(err error, stage string) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return bpxerr.Truncation(stage)
	}
	return bpxerr.IO(stage, err)
}
