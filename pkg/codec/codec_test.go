package codec

import (
	"bytes"
	"errors"
	"testing"

	"lukechampine.com/uint128"
)

func TestWriterReader_Fields(t *testing.T) {
	big := uint128.New(0xdeadbeef, 0x01)

	w := NewWriter(64)
	w.Uint8(7)
	w.Uint32(0xAABBCCDD)
	w.Uint64(1 << 40)
	w.Uint128(big)
	w.Fixed([]byte("tag!"))
	w.Bytes([]byte("payload"))
	data := w.Finish()

	r := NewReader(data)
	if got := r.Uint8(); got != 7 {
		t.Errorf("Uint8() = %d, want 7", got)
	}
	if got := r.Uint32(); got != 0xAABBCCDD {
		t.Errorf("Uint32() = %x, want aabbccdd", got)
	}
	if got := r.Uint64(); got != 1<<40 {
		t.Errorf("Uint64() = %d, want %d", got, uint64(1<<40))
	}
	if got := r.Uint128(); !got.Equals(big) {
		t.Errorf("Uint128() = %s, want %s", got, big)
	}
	var tag [4]byte
	r.Fixed(tag[:])
	if string(tag[:]) != "tag!" {
		t.Errorf("Fixed() = %q, want %q", tag, "tag!")
	}
	if got := r.Bytes(); !bytes.Equal(got, []byte("payload")) {
		t.Errorf("Bytes() = %q, want %q", got, "payload")
	}
	if err := r.Finish(); err != nil {
		t.Fatalf("Finish() error: %v", err)
	}
}

func TestReader_Truncated(t *testing.T) {
	w := NewWriter(32)
	w.Uint64(42)
	w.Bytes([]byte("abcdef"))
	data := w.Finish()

	// Every strict prefix must fail without panicking.
	for n := 0; n < len(data); n++ {
		r := NewReader(data[:n])
		r.Uint64()
		r.Bytes()
		if err := r.Finish(); !errors.Is(err, ErrShortBuffer) {
			t.Fatalf("prefix %d: Finish() = %v, want ErrShortBuffer", n, err)
		}
	}
}

func TestReader_LengthPrefixTooLarge(t *testing.T) {
	w := NewWriter(8)
	w.Uint32(1 << 30)
	w.Fixed([]byte("xy"))

	r := NewReader(w.Finish())
	if got := r.Bytes(); got != nil {
		t.Errorf("Bytes() = %v, want nil", got)
	}
	if !errors.Is(r.Err(), ErrShortBuffer) {
		t.Errorf("Err() = %v, want ErrShortBuffer", r.Err())
	}
}

func TestReader_TrailingBytes(t *testing.T) {
	r := NewReader([]byte{1, 2})
	r.Uint8()
	if err := r.Finish(); !errors.Is(err, ErrTrailingBytes) {
		t.Errorf("Finish() = %v, want ErrTrailingBytes", err)
	}
	if r.Remaining() != 1 {
		t.Errorf("Remaining() = %d, want 1", r.Remaining())
	}
}

func TestReader_StickyError(t *testing.T) {
	r := NewReader([]byte{1})
	if got := r.Uint32(); got != 0 {
		t.Errorf("Uint32() on short input = %d, want 0", got)
	}
	// The one byte is still there but the reader stays failed.
	if got := r.Uint8(); got != 0 {
		t.Errorf("Uint8() after failure = %d, want 0", got)
	}
	if r.Err() == nil {
		t.Error("Err() = nil after short read")
	}
}

func TestBytes_ReturnsCopy(t *testing.T) {
	w := NewWriter(8)
	w.Bytes([]byte{9, 9})
	data := w.Finish()

	r := NewReader(data)
	got := r.Bytes()
	got[0] = 0
	if data[4] != 9 {
		t.Error("Bytes() aliased the input buffer")
	}
}

func TestReader_Count(t *testing.T) {
	w := NewWriter(16)
	w.Uint32(2)
	w.Fixed(make([]byte, 8))
	data := w.Finish()

	r := NewReader(data)
	if n := r.Count(4); n != 2 || r.Err() != nil {
		t.Errorf("Count(4) = %d, err %v; want 2", n, r.Err())
	}

	r = NewReader(data)
	if n := r.Count(5); n != 0 || !errors.Is(r.Err(), ErrShortBuffer) {
		t.Errorf("Count(5) = %d, err %v; want ErrShortBuffer", n, r.Err())
	}

	// A hostile count must fail before anyone allocates for it.
	w = NewWriter(4)
	w.Uint32(0xFFFFFFFF)
	r = NewReader(w.Finish())
	if n := r.Count(1); n != 0 || r.Err() == nil {
		t.Errorf("Count() on huge prefix = %d, err %v", n, r.Err())
	}
}
