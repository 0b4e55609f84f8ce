package sd

import (
	"bytes"
	"testing"

	"github.com/bpx-format/bpx/bpxerr"
)

func TestObjectRoundTrip(t *testing.T) {
	// Property 4: encoding then decoding an Object yields a structurally
	// equal tree.
	inner := NewArray()
	if err := inner.Append(U32(7)); err != nil {
		t.Fatal(err)
	}
	if err := inner.Append(Str("nested")); err != nil {
		t.Fatal(err)
	}

	o := NewObject()
	cases := map[string]Value{
		"name":    Str("crate.bpx"),
		"version": U32(42),
		"ratio":   F64(3.25),
		"signed":  I16(-12),
		"enabled": Bool(true),
		"nothing": Null(),
		"items":   Arr(inner),
	}
	for k, v := range cases {
		if err := o.Set(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := o.SetDebugSymbols([]string{"main", "helper"}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, o); err != nil {
		t.Fatal(err)
	}

	got, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !o.Equal(got) {
		t.Fatalf("round trip produced a different tree")
	}

	syms, err := got.DebugSymbols()
	if err != nil {
		t.Fatal(err)
	}
	if syms.Len() != 2 {
		t.Fatalf("debug symbols len = %d, want 2", syms.Len())
	}
}

func TestObjectSetHashCollisionRejected(t *testing.T) {
	o := NewObject()
	if err := o.Set("alpha", U8(1)); err != nil {
		t.Fatal(err)
	}
	// Re-setting the same name must not be treated as a collision.
	if err := o.Set("alpha", U8(2)); err != nil {
		t.Fatalf("re-setting the same name must not be treated as a collision: %v", err)
	}
	if v, _ := o.Get("alpha"); v.U8() != 2 {
		t.Fatalf("expected overwrite of same name to succeed")
	}

	// Force a hash collision to exercise the white-box check: Set must
	// refuse a name whose hash already maps to a different recorded name.
	h := Hash("alpha")
	o.names[h] = "someone-else"
	if err := o.Set("alpha", U8(3)); err == nil {
		t.Fatal("expected a hash collision against a different recorded name to be rejected")
	} else if berr, ok := err.(*bpxerr.Error); !ok || berr.Kind != bpxerr.KindCorruption {
		t.Fatalf("got %v, want KindCorruption", err)
	}
}

func TestArrayCapacityExceeded(t *testing.T) {
	// Property 5: appending a 256th entry fails with PropCountExceeded.
	a := NewArray()
	for i := 0; i < 255; i++ {
		if err := a.Append(U8(1)); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.Append(U8(1)); err == nil {
		t.Fatal("expected the 256th append to fail")
	} else if berr, ok := err.(*bpxerr.Error); !ok || berr.Kind != bpxerr.KindPropCountExceeded {
		t.Fatalf("got %v, want KindPropCountExceeded", err)
	}
}

func TestEncodeObjectOverCapacityEmitsNothing(t *testing.T) {
	o := NewObject()
	for i := 0; i < 255; i++ {
		if err := o.SetHash(uint64(i), U8(1)); err != nil {
			t.Fatal(err)
		}
	}
	// Bypass Object.Set's own cap check to build an over-capacity tree
	// directly, the way a buggy upstream producer might.
	o.entries[uint64(999)] = U8(1)

	var buf bytes.Buffer
	if err := Encode(&buf, o); err == nil {
		t.Fatal("expected Encode to reject a 256-entry object")
	}
	if buf.Len() != 0 {
		t.Fatalf("Encode wrote %d bytes before failing validation, want 0", buf.Len())
	}
}

func TestDecodeTruncatedInput(t *testing.T) {
	var buf bytes.Buffer
	o := NewObject()
	if err := o.Set("k", U32(99)); err != nil {
		t.Fatal(err)
	}
	if err := Encode(&buf, o); err != nil {
		t.Fatal(err)
	}
	truncated := buf.Bytes()[:buf.Len()-2]

	if _, err := Decode(bytes.NewReader(truncated)); err == nil {
		t.Fatal("expected a truncation error")
	} else if berr, ok := err.(*bpxerr.Error); !ok || berr.Kind != bpxerr.KindTruncation {
		t.Fatalf("got %v, want KindTruncation", err)
	}
}

func TestStringWithEmbeddedNulRejected(t *testing.T) {
	o := NewObject()
	if err := o.Set("bad", Str("a\x00b")); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, o); err == nil {
		t.Fatal("expected an embedded-NUL string to be rejected")
	}
}
