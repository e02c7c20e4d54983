package hashcore

import (
	"encoding/hex"
	"testing"
)

func TestDescriptorValidate(t *testing.T) {
	cases := []struct {
		prefix, suffix int
		wantErr        bool
	}{
		{8, 0, false},
		{0, 0, true},  // total 0
		{14, 13, false}, // total 27, exactly at the limit
		{14, 14, true}, // total 28, over the one-block limit
		{-1, 5, true},
	}
	for _, c := range cases {
		_, err := NewDescriptor(c.prefix, c.suffix)
		if (err != nil) != c.wantErr {
			t.Errorf("NewDescriptor(%d,%d): err=%v, wantErr=%v", c.prefix, c.suffix, err, c.wantErr)
		}
	}
}

func TestHashDeterminism(t *testing.T) {
	d := DefaultDescriptor
	start, _ := hex.DecodeString("0000000000000000")

	point := start
	for i := 0; i < 16; i++ {
		point = d.Hash(point)
	}

	point2 := start
	for i := 0; i < 16; i++ {
		point2 = d.Hash(point2)
	}

	if hex.EncodeToString(point) != hex.EncodeToString(point2) {
		t.Fatalf("H is not deterministic: %x != %x", point, point2)
	}
	if len(point) != d.L() {
		t.Fatalf("expected %d-byte output, got %d", d.L(), len(point))
	}
}

func TestIsDistinguished(t *testing.T) {
	cases := []struct {
		x    []byte
		k    int
		want bool
	}{
		{[]byte{0x00, 0xFF}, 8, true},
		{[]byte{0x00, 0xFF}, 9, false},
		{[]byte{0x00, 0x00}, 16, true},
		{[]byte{0x01, 0x00}, 1, true},
		{[]byte{0x00, 0x00}, 0, true},
		{[]byte{0x7F}, 1, true},
		{[]byte{0x80}, 1, false},
	}
	for _, c := range cases {
		got := IsDistinguished(c.x, c.k)
		if got != c.want {
			t.Errorf("IsDistinguished(%x, %d) = %v, want %v", c.x, c.k, got, c.want)
		}
	}
}

func TestTruncatePrefixSuffix(t *testing.T) {
	d, err := NewDescriptor(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	full := make([]byte, 32)
	for i := range full {
		full[i] = byte(i)
	}
	got := d.Truncate(full)
	want := []byte{0, 1, 2, 3, 28, 29, 30, 31}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %d want %d", i, got[i], want[i])
		}
	}
}

func TestMask64(t *testing.T) {
	m0, m1 := Mask64(1)
	if m0 != 0x80000000 || m1 != 0 {
		t.Errorf("Mask64(1) = %x,%x", m0, m1)
	}
	m0, m1 = Mask64(32)
	if m0 != 0xFFFFFFFF || m1 != 0 {
		t.Errorf("Mask64(32) = %x,%x", m0, m1)
	}
	m0, m1 = Mask64(40)
	if m0 != 0xFFFFFFFF || m1 != 0xFF000000 {
		t.Errorf("Mask64(40) = %x,%x", m0, m1)
	}
}
