package bpx

import (
	"bytes"
	"hash/crc32"
	"testing"
)

func TestEmptySectionRoundTrip(t *testing.T) {
	// E2E-1: one empty section, type=7, no flags, no payload.
	w := NewWriter(TypePackage)
	h, err := w.CreateSection(SectionHeader{Type: 7}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if h != 0 {
		t.Fatalf("got handle %d, want 0", h)
	}

	var out bytes.Buffer
	if err := w.Save(&out); err != nil {
		t.Fatal(err)
	}

	wantSize := int64(SizeMainHeader + SizeSectionHeader)
	if int64(out.Len()) != wantSize {
		t.Fatalf("file size = %d, want %d", out.Len(), wantSize)
	}

	rd, err := New(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if rd.SectionCount() != 1 {
		t.Fatalf("section count = %d, want 1", rd.SectionCount())
	}
	sh, err := rd.SectionHeader(0)
	if err != nil {
		t.Fatal(err)
	}
	if sh.Size != 0 || sh.Chksum != 0 || sh.Type != 7 {
		t.Fatalf("unexpected section header: %+v", sh)
	}
}

func TestHelloWorldCRC32Zlib(t *testing.T) {
	// E2E-2: one section carrying "hello world" with CHECK_CRC32 | COMPRESS_ZLIB.
	payload := []byte("hello world")

	w := NewWriter(TypePackage)
	h, err := w.CreateSection(SectionHeader{Type: 1, Flags: FlagCheckCRC32 | FlagCompressZlib}, 0)
	if err != nil {
		t.Fatal(err)
	}
	store, err := w.OpenSection(h)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Write(payload); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := w.Save(&out); err != nil {
		t.Fatal(err)
	}

	rd, err := New(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	sh, err := rd.SectionHeader(0)
	if err != nil {
		t.Fatal(err)
	}
	want := crc32.ChecksumIEEE(payload)
	if sh.Chksum != want {
		t.Fatalf("chksum = %#x, want %#x", sh.Chksum, want)
	}
	if sh.Csize == sh.Size && sh.Flags&FlagCompressZlib != 0 {
		t.Fatalf("csize == size but COMPRESS_ZLIB bit still set")
	}

	rstore, err := rd.OpenSection(0)
	if err != nil {
		t.Fatal(err)
	}
	got, err := rstore.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestCompressionBelowThresholdIsCleared(t *testing.T) {
	w := NewWriter(TypePackage)
	// Prior Csize of 1000 acts as the pre-write "only compress if bigger
	// than this" hint; our 4-byte payload never clears it.
	h, err := w.CreateSection(SectionHeader{Type: 1, Flags: FlagCompressXZ, Csize: 1000}, 0)
	if err != nil {
		t.Fatal(err)
	}
	store, err := w.OpenSection(h)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Write([]byte("abcd")); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := w.Save(&out); err != nil {
		t.Fatal(err)
	}
	rd, err := New(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	sh, err := rd.SectionHeader(0)
	if err != nil {
		t.Fatal(err)
	}
	if sh.Flags&FlagCompressXZ != 0 {
		t.Fatalf("COMPRESS_XZ bit should have been cleared below threshold, flags=%#x", sh.Flags)
	}
	if sh.Size != sh.Csize {
		t.Fatalf("size=%d csize=%d, want equal for stored-verbatim section", sh.Size, sh.Csize)
	}
}

func TestHeaderIntegrityDetectsCorruption(t *testing.T) {
	// Flipping a byte of the main header makes the load fail. A signature
	// byte is flipped here, so the reader rejects the file at its signature
	// check (Corruption), before it reaches the header checksum.
	w := NewWriter(TypePackage)
	if _, err := w.CreateSection(SectionHeader{Type: 3}, 0); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := w.Save(&out); err != nil {
		t.Fatal(err)
	}

	corrupted := append([]byte(nil), out.Bytes()...)
	corrupted[1] ^= 0xFF // flip a signature byte, outside Chksum's offset

	if _, err := New(bytes.NewReader(corrupted)); err == nil {
		t.Fatal("expected an error reading a corrupted header")
	}
}

func TestSpillTransparency(t *testing.T) {
	// Testable property 6: writing the same bytes into an in-memory and a
	// spill-backed section store produce identical on-disk output.
	payload := bytes.Repeat([]byte("xyzzy-"), 64)

	build := func(capacityHint int64) []byte {
		w := NewWriter(TypePackage)
		h, err := w.CreateSection(SectionHeader{Type: 9, Flags: FlagCheckCRC32}, capacityHint)
		if err != nil {
			t.Fatal(err)
		}
		store, err := w.OpenSection(h)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := store.Write(payload); err != nil {
			t.Fatal(err)
		}
		var out bytes.Buffer
		if err := w.Save(&out); err != nil {
			t.Fatal(err)
		}
		return out.Bytes()
	}

	inMemory := build(0)
	spilled := build(200_000_000) // forces the spill backend

	if !bytes.Equal(inMemory, spilled) {
		t.Fatalf("in-memory and spill backends produced different output")
	}
}
