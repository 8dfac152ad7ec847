package bytesutil

import "testing"

func TestU8(t *testing.T) {
	buf := []byte{0x01, 0x02}
	if v := U8(buf, 1); v != 0x02 {
		t.Fatalf("U8(1) = %d, want 2", v)
	}
	if v := U8(buf, 5); v != 0 {
		t.Fatalf("U8(5) out of bounds = %d, want 0", v)
	}
	if v := U8(buf, -1); v != 0 {
		t.Fatalf("U8(-1) negative offset = %d, want 0", v)
	}
}

func TestU16LE(t *testing.T) {
	buf := []byte{0x34, 0x12}
	if v := U16LE(buf, 0); v != 0x1234 {
		t.Fatalf("U16LE = %#x, want 0x1234", v)
	}
	if v := U16LE(buf, 1); v != 0 {
		t.Fatalf("U16LE short read = %#x, want 0", v)
	}
}

func TestU24LE(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03}
	if v := U24LE(buf, 0); v != 0x030201 {
		t.Fatalf("U24LE = %#x, want 0x030201", v)
	}
	if v := U24LE(buf, 1); v != 0 {
		t.Fatalf("U24LE short read = %#x, want 0", v)
	}
}

func TestU24BE(t *testing.T) {
	buf := []byte{0x00, 0x00, 0x78}
	if v := U24BE(buf, 0); v != 120 {
		t.Fatalf("U24BE = %d, want 120", v)
	}
	buf2 := []byte{0x00, 0x32, 0x00}
	if v := U24BE(buf2, 0); v != 0x003200 {
		t.Fatalf("U24BE = %#x, want 0x003200", v)
	}
}
