package pkgvariant

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bpx-format/bpx/archenum"
	"github.com/bpx-format/bpx/sd"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestPackageRoundTrip(t *testing.T) {
	// E2E-3: pack a small directory-shaped file set, round trip, verify
	// contents and metadata survive.
	w, err := NewWriter(TypeExt{Arch: archenum.ArchX86_64, Platform: archenum.PlatformLinux, AppCode: [2]byte{'a', 'b'}})
	if err != nil {
		t.Fatal(err)
	}

	files := map[string]string{
		"bin/hello":   "#!/bin/sh\necho hello\n",
		"lib/libx.so": strings.Repeat("binary-ish-bytes", 32),
		"share/doc":   "docs",
	}
	for name, content := range files {
		if err := w.AddFile(name, strings.NewReader(content), int64(len(content))); err != nil {
			t.Fatal(err)
		}
	}

	meta := sd.NewObject()
	if err := meta.Set("package-name", sd.Str("hello-pkg")); err != nil {
		t.Fatal(err)
	}
	w.SetMetadata(meta)

	var out bytes.Buffer
	if err := w.Save(&out); err != nil {
		t.Fatal(err)
	}

	rd, err := Open(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatal(err)
	}

	if rd.TypeExt().Arch != archenum.ArchX86_64 || rd.TypeExt().Platform != archenum.PlatformLinux {
		t.Fatalf("unexpected type-ext: %+v", rd.TypeExt())
	}

	entries, err := rd.ListFiles()
	if err != nil {
		t.Fatal(err)
	}
	var want []FileEntry
	for name, content := range files {
		want = append(want, FileEntry{Path: name, Size: uint64(len(content))})
	}
	sortEntries := cmpopts.SortSlices(func(a, b FileEntry) bool { return a.Path < b.Path })
	if diff := cmp.Diff(want, entries, sortEntries); diff != "" {
		t.Fatalf("ListFiles() mismatch (-want +got):\n%s", diff)
	}
	for name, content := range files {
		got, err := rd.OpenFile(name)
		if err != nil {
			t.Fatalf("OpenFile(%q): %v", name, err)
		}
		if string(got) != content {
			t.Fatalf("OpenFile(%q) = %q, want %q", name, got, content)
		}
	}

	v, ok := rd.Metadata().Get("package-name")
	if !ok || v.Text() != "hello-pkg" {
		t.Fatalf("metadata package-name missing or wrong: %+v", v)
	}
}

func TestPackageDataSectionSplit(t *testing.T) {
	// E2E-5: a file set large enough to force more than one data section
	// must still read back as one logical stream.
	w, err := NewWriter(TypeExt{Arch: archenum.ArchAny, Platform: archenum.PlatformAny})
	if err != nil {
		t.Fatal(err)
	}

	const chunkSize = 40 * 1000 * 1000 // 40MB; six of these exceeds the split threshold
	chunk := strings.Repeat("q", chunkSize)
	names := []string{"a.bin", "b.bin", "c.bin", "d.bin", "e.bin", "f.bin"}
	for _, n := range names {
		if err := w.AddFile(n, strings.NewReader(chunk), int64(len(chunk))); err != nil {
			t.Fatal(err)
		}
	}

	var out bytes.Buffer
	if err := w.Save(&out); err != nil {
		t.Fatal(err)
	}

	rd, err := Open(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	dataSections := rd.core.FindAllSectionsOfType(SectionData)
	if len(dataSections) < 2 {
		t.Fatalf("expected the writer to split across multiple data sections, got %d", len(dataSections))
	}

	for _, n := range names {
		got, err := rd.OpenFile(n)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != chunkSize {
			t.Fatalf("OpenFile(%q) length = %d, want %d", n, len(got), chunkSize)
		}
	}
}

func TestPackageSingleFileSpansDataSections(t *testing.T) {
	// E2E-5: a single file larger than maxDataSectionSize must itself be
	// split across data sections, not just file-to-file rollover.
	w, err := NewWriter(TypeExt{Arch: archenum.ArchAny, Platform: archenum.PlatformAny})
	if err != nil {
		t.Fatal(err)
	}

	const size = 250 * 1024 * 1024 // 250 MiB, bigger than maxDataSectionSize
	content := make([]byte, size)
	for i := range content {
		content[i] = byte(i % 251)
	}

	if err := w.AddFile("big.bin", bytes.NewReader(content), int64(len(content))); err != nil {
		t.Fatal(err)
	}
	if err := w.AddFile("small.bin", strings.NewReader("tiny"), 4); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := w.Save(&out); err != nil {
		t.Fatal(err)
	}

	rd, err := Open(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	dataSections := rd.core.FindAllSectionsOfType(SectionData)
	if len(dataSections) < 2 {
		t.Fatalf("expected a single oversized file to span multiple data sections, got %d", len(dataSections))
	}

	got, err := rd.OpenFile("big.bin")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("big.bin round trip mismatch: got %d bytes, want %d bytes", len(got), len(content))
	}

	small, err := rd.OpenFile("small.bin")
	if err != nil {
		t.Fatal(err)
	}
	if string(small) != "tiny" {
		t.Fatalf("small.bin = %q, want %q", small, "tiny")
	}
}

func TestPackageMissingFile(t *testing.T) {
	w, err := NewWriter(TypeExt{})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.AddFile("only.txt", strings.NewReader("x"), 1); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := w.Save(&out); err != nil {
		t.Fatal(err)
	}
	rd, err := Open(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rd.OpenFile("missing.txt"); err == nil {
		t.Fatal("expected an error opening a nonexistent file")
	}
}
