package codec

// Writer accumulates a growable byte buffer. Every persistent type's
// serialize(writer) method appends to one; the buffer returned by Finish
// is the canonical wire form that SHA3 hashes are computed over.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty writer with cap hinted by size, matching
// PackageT's "preallocate and grow" style from the teacher's framing code.
func NewWriter(sizeHint int) *Writer {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

// Varint appends v as an unsigned LEB128 varint.
func (w *Writer) Varint(v uint64) {
	w.buf = AppendVarint(w.buf, v)
}

// Bool appends a single byte, 1 for true.
func (w *Writer) Bool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
		return
	}
	w.buf = append(w.buf, 0)
}

// Key appends a fixed-size array verbatim, with no length prefix. Used for
// 32-byte hashes, scalars, points, signatures, and key images, whose size
// is implied by the type rather than carried on the wire.
func (w *Writer) Key(key []byte) {
	w.buf = append(w.buf, key...)
}

// Bytes appends a length-prefixed byte blob.
func (w *Writer) Bytes(blob []byte) {
	w.Varint(uint64(len(blob)))
	w.buf = append(w.buf, blob...)
}

// KeyVector appends a length-prefixed vector of fixed-size keys. Each key
// is written verbatim with no per-key length, so the keys are expected to
// share one size that the reader already knows.
func (w *Writer) KeyVector(keys [][]byte) {
	w.Varint(uint64(len(keys)))
	for _, k := range keys {
		w.buf = append(w.buf, k...)
	}
}

// Raw appends bytes produced by another Writer's Finish (nested
// serialize calls), with no length prefix or other framing.
func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// Finish returns the accumulated buffer without copying it. The writer
// must not be written to after this call, since further appends can
// mutate the slice it returns.
func (w *Writer) Finish() []byte {
	return w.buf
}

// Len reports the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}
