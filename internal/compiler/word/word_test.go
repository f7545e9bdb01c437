package word

import (
	"bytes"
	"testing"
)

func TestFromBytesRightPad(t *testing.T) {
	w, ok := FromBytes([]byte{0x01, 0x02}, true)
	if !ok {
		t.Fatal("expected ok")
	}
	want := make([]byte, 32)
	want[30], want[31] = 0x01, 0x02
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("got %x, want %x", w.Bytes(), want)
	}
}

func TestFromBytesLeftPad(t *testing.T) {
	w, ok := FromBytes([]byte{0x01, 0x02}, false)
	if !ok {
		t.Fatal("expected ok")
	}
	want := make([]byte, 32)
	want[0], want[1] = 0x01, 0x02
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("got %x, want %x", w.Bytes(), want)
	}
}

func TestFromBytesOverflow(t *testing.T) {
	_, ok := FromBytes(make([]byte, 33), true)
	if ok {
		t.Error("expected ok=false for >32 bytes")
	}
}

func TestIsZero(t *testing.T) {
	z, _ := FromBytes(nil, true)
	if !z.IsZero() {
		t.Error("empty word should be zero")
	}
	nz, _ := FromBytes([]byte{0x00, 0x01}, true)
	if nz.IsZero() {
		t.Error("word with trailing 1 should not be zero")
	}
}

func TestMinimalTail(t *testing.T) {
	w, _ := FromBytes([]byte{0x01, 0x02}, true)
	if !bytes.Equal(w.MinimalTail(), []byte{0x01, 0x02}) {
		t.Errorf("got %x, want 0102", w.MinimalTail())
	}

	z, _ := FromBytes(nil, true)
	if len(z.MinimalTail()) != 0 {
		t.Errorf("zero word minimal tail should be empty, got %x", z.MinimalTail())
	}
}

func TestLeadingZeros(t *testing.T) {
	w, _ := FromBytes([]byte{0xff}, true)
	if w.LeadingZeros() != 31 {
		t.Errorf("got %d, want 31", w.LeadingZeros())
	}
}

func TestTrailingZerosAndMinimalHead(t *testing.T) {
	w, _ := FromBytes([]byte{0x01, 0x02}, false)
	if w.TrailingZeros() != 30 {
		t.Errorf("got %d, want 30", w.TrailingZeros())
	}
	if !bytes.Equal(w.MinimalHead(), []byte{0x01, 0x02}) {
		t.Errorf("got %x, want 0102", w.MinimalHead())
	}

	z, _ := FromBytes(nil, false)
	if len(z.MinimalHead()) != 0 {
		t.Errorf("zero word minimal head should be empty, got %x", z.MinimalHead())
	}
}
