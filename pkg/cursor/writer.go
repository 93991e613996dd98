package cursor

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Placeholder is written into size and offset fields whose value is only
// known once the rest of the chunk has been emitted.
const Placeholder uint32 = 0xFFFFFFFF

// Writer is an append-only little-endian byte buffer with in-place patching
// of previously written 32-bit fields.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// NewWriterWithPrefix returns a Writer pre-seeded with prefix.
func NewWriterWithPrefix(prefix []byte) *Writer {
	w := &Writer{buf: make([]byte, 0, 4096)}
	w.buf = append(w.buf, prefix...)
	return w
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the written data. The slice aliases the writer's buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// U8 appends a byte.
func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

// U16 appends a little-endian uint16.
func (w *Writer) U16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// I16 appends a little-endian int16.
func (w *Writer) I16(v int16) {
	w.U16(uint16(v))
}

// U32 appends a little-endian uint32.
func (w *Writer) U32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// I32 appends a little-endian int32.
func (w *Writer) I32(v int32) {
	w.U32(uint32(v))
}

// U64 appends a little-endian uint64.
func (w *Writer) U64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// I64 appends a little-endian int64.
func (w *Writer) I64(v int64) {
	w.U64(uint64(v))
}

// F32 appends a little-endian IEEE-754 float32.
func (w *Writer) F32(v float32) {
	w.U32(math.Float32bits(v))
}

// F32s appends each value in order.
func (w *Writer) F32s(vs ...float32) {
	for _, v := range vs {
		w.F32(v)
	}
}

// Raw appends b verbatim.
func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// Zeros appends n zero bytes.
func (w *Writer) Zeros(n int) {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, 0)
	}
}

// Tag appends an ASCII chunk identifier without a length prefix.
func (w *Writer) Tag(tag string) {
	w.buf = append(w.buf, tag...)
}

// PrefixedString appends a uint32 byte length followed by the string bytes.
func (w *Writer) PrefixedString(s string) {
	w.U32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// Reserve writes a placeholder uint32 and returns its offset for PatchU32.
func (w *Writer) Reserve() int {
	off := len(w.buf)
	w.U32(Placeholder)
	return off
}

// PatchU32 overwrites 4 already-written bytes at offset without shifting
// anything that follows.
func (w *Writer) PatchU32(offset int, v uint32) error {
	if offset < 0 || offset+4 > len(w.buf) {
		return fmt.Errorf("%w: patch at %d (size %d)", ErrInvalidSeek, offset, len(w.buf))
	}
	binary.LittleEndian.PutUint32(w.buf[offset:], v)
	return nil
}

// PatchLengthFrom patches the uint32 at offset with the number of bytes
// written after that field.
func (w *Writer) PatchLengthFrom(offset int) error {
	return w.PatchU32(offset, uint32(len(w.buf)-offset-4))
}
