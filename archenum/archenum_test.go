package archenum

import "testing"

func TestArchRoundTrip(t *testing.T) {
	for a := Arch(0); a <= ArchAny; a++ {
		got, err := ArchByName(a.String())
		if err != nil {
			t.Fatal(err)
		}
		if got != a {
			t.Fatalf("ArchByName(%q) = %d, want %d", a.String(), got, a)
		}
	}
	if _, err := ArchByName("riscv64"); err == nil {
		t.Fatal("expected an error for an unknown architecture name")
	}
}

func TestPlatformRoundTrip(t *testing.T) {
	for p := Platform(0); p <= PlatformAny; p++ {
		got, err := PlatformByName(p.String())
		if err != nil {
			t.Fatal(err)
		}
		if got != p {
			t.Fatalf("PlatformByName(%q) = %d, want %d", p.String(), got, p)
		}
	}
	if _, err := PlatformByName("bsd"); err == nil {
		t.Fatal("expected an error for an unknown platform name")
	}
}

func TestValidArch(t *testing.T) {
	if !ValidArch(ArchX86_64) {
		t.Fatal("x86_64 should be valid")
	}
	if ValidArch(Arch(200)) {
		t.Fatal("200 should not be a valid architecture code")
	}
}
