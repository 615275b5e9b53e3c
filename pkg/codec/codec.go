// Package codec implements the canonical binary encoding used for ledger
// records: fixed-width little-endian integers and u32 length-prefixed byte
// strings. Encoding is deterministic and decoding never reads past the input.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"lukechampine.com/uint128"
)

// Decoding errors.
var (
	ErrShortBuffer   = errors.New("unexpected end of input")
	ErrTrailingBytes = errors.New("trailing bytes after record")
)

// Uint128Size is the encoded width of a 128-bit integer.
const Uint128Size = 16

// Writer appends encoded fields to a buffer.
type Writer struct {
	buf []byte
}

// NewWriter creates a writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Uint8 appends a single byte.
func (w *Writer) Uint8(v uint8) {
	w.buf = append(w.buf, v)
}

// Uint32 appends a little-endian uint32.
func (w *Writer) Uint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// Uint64 appends a little-endian uint64.
func (w *Writer) Uint64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// Uint128 appends a little-endian 128-bit integer.
func (w *Writer) Uint128(v uint128.Uint128) {
	var b [Uint128Size]byte
	v.PutBytes(b[:])
	w.buf = append(w.buf, b[:]...)
}

// Fixed appends b without a length prefix.
func (w *Writer) Fixed(b []byte) {
	w.buf = append(w.buf, b...)
}

// Bytes appends b with a u32 length prefix.
func (w *Writer) Bytes(b []byte) {
	w.Uint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// Finish returns the encoded bytes.
func (w *Writer) Finish() []byte {
	return w.buf
}

// Reader decodes fields from a byte slice. The first failure is sticky:
// every later read returns a zero value and Err reports the failure.
type Reader struct {
	data []byte
	off  int
	err  error
}

// NewReader creates a reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.data)-r.off < n {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, r.off, len(r.data)-r.off)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// Uint8 reads a single byte.
func (r *Reader) Uint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Uint32 reads a little-endian uint32.
func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// Uint64 reads a little-endian uint64.
func (r *Reader) Uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// Uint128 reads a little-endian 128-bit integer.
func (r *Reader) Uint128() uint128.Uint128 {
	b := r.take(Uint128Size)
	if b == nil {
		return uint128.Zero
	}
	return uint128.FromBytes(b)
}

// Fixed fills dst from the input.
func (r *Reader) Fixed(dst []byte) {
	b := r.take(len(dst))
	if b != nil {
		copy(dst, b)
	}
}

// Bytes reads a u32 length-prefixed byte string. The result is a copy.
func (r *Reader) Bytes() []byte {
	n := r.Uint32()
	if r.err != nil {
		return nil
	}
	if uint64(n) > uint64(len(r.data)-r.off) {
		r.err = fmt.Errorf("%w: length prefix %d exceeds remaining %d bytes", ErrShortBuffer, n, len(r.data)-r.off)
		return nil
	}
	b := r.take(int(n))
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Count reads a u32 element count for a list whose elements encode to at
// least minSize bytes each. A count the remaining input cannot hold fails
// the reader, so callers may allocate the result safely.
func (r *Reader) Count(minSize int) int {
	n := r.Uint32()
	if r.err != nil {
		return 0
	}
	if uint64(n)*uint64(minSize) > uint64(len(r.data)-r.off) {
		r.err = fmt.Errorf("%w: %d elements do not fit in %d bytes", ErrShortBuffer, n, len(r.data)-r.off)
		return 0
	}
	return int(n)
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Err returns the first decoding failure, if any.
func (r *Reader) Err() error {
	return r.err
}

// Finish returns the first decoding failure, or ErrTrailingBytes if input
// remains unread. Records must be consumed exactly.
func (r *Reader) Finish() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.data) {
		return fmt.Errorf("%w: %d unread", ErrTrailingBytes, len(r.data)-r.off)
	}
	return nil
}
