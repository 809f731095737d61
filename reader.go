package pipe

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

// Reader simplifies reading binary data and tracks the first error.
// Subsequent reads become no-ops.
//
// It never reads ahead: a value decoded through a Reader consumes exactly its
// own bytes from the source, so the next value's bytes stay where they are.
type Reader struct {
	r       io.Reader
	br      io.ByteReader // fast path when r also reads single bytes
	count   int64         // total bytes read
	err     error         // first error encountered.
	order   binary.ByteOrder
	scratch [8]byte
}

// NewReader creates a new Reader over r.
func NewReader(r io.Reader) (*Reader, error) {
	if r == nil {
		return nil, ErrNilIO
	}
	// Reuse the underlying reader if it's already a Reader.
	if pr, ok := r.(*Reader); ok {
		r = pr.r
	}
	br, _ := r.(io.ByteReader)
	return &Reader{r: r, br: br, order: Order}, nil
}

// WithByteOrder allows setting a custom byte order and returns
// the configured for chaining.
func (r *Reader) WithByteOrder(order binary.ByteOrder) *Reader {
	r.order = order
	return r
}

// Read implements the io.Reader interface.
func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	n, err := r.r.Read(p)
	r.count += int64(n)
	r.setError(err)
	return n, r.err
}

func (r *Reader) Count() int64 { return r.count }
func (r *Reader) Err() error   { return r.err }
func (r *Reader) IsEOF() bool  { return r.err == io.EOF }

// setError records the first non-nil error.
func (r *Reader) setError(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// Result returns the total bytes read and the final error state.
func (r *Reader) Result() (int64, error) {
	return r.count, r.err
}

// ReadTo lets an io.ReaderFrom decode itself from the underlying reader.
func (r *Reader) ReadTo(w io.ReaderFrom) {
	if r.err != nil || w == nil {
		return
	}
	n, err := w.ReadFrom(r.r)
	r.count += n
	r.setError(err)
}

// readFull fills dest completely or latches an error.
func (r *Reader) readFull(dest []byte) bool {
	if r.err != nil {
		return false
	}
	n, err := io.ReadFull(r.r, dest)
	r.count += int64(n)
	if err != nil {
		if err == io.EOF && n == 0 && r.count > 0 {
			// To provide a more specific error for callers;
			// a partial value is different from a clean end-of-stream.
			err = io.ErrUnexpectedEOF
		}
		r.err = err
		return false
	}
	return true
}

// ReadBytes reads n bytes and returns a new byte slice. The slice grows in
// bounded chunks, so a corrupt length fails on the missing data instead of
// allocating n bytes up front.
func (r *Reader) ReadBytes(n int) []byte {
	if n <= 0 || r.err != nil {
		return nil
	}
	buf := make([]byte, 0, initialCap(n, BUFFER_SIZE))
	for len(buf) < n {
		chunk := min(n-len(buf), CHUNK_SIZE)
		start := len(buf)
		buf = append(buf, make([]byte, chunk)...)
		if !r.readFull(buf[start:]) {
			return nil
		}
	}
	return buf
}

// ReadString reads n bytes of UTF-8 text.
func (r *Reader) ReadString(n int) string {
	b := r.ReadBytes(n)
	if r.err != nil {
		return ""
	}
	if !utf8.Valid(b) {
		r.setError(fmt.Errorf("%w: string is not valid UTF-8", ErrInvalidData))
		return ""
	}
	return string(b)
}

// ReadLen reads a u64 length prefix.
func (r *Reader) ReadLen() int {
	var n uint64
	r.ReadUint64(&n)
	if r.err != nil {
		return 0
	}
	l, err := checkedLen(n)
	if err != nil {
		r.setError(err)
		return 0
	}
	return l
}

// --- Primitive Read Operations ---

func (r *Reader) ReadByte() (byte, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.br == nil {
		if !r.readFull(r.scratch[:1]) {
			return 0, r.err
		}
		return r.scratch[0], nil
	}
	b, err := r.br.ReadByte()
	if err == nil {
		r.count++
		return b, nil
	}
	if err == io.EOF && r.count > 0 {
		err = io.ErrUnexpectedEOF
	}
	r.err = err
	return 0, err
}

func (r *Reader) ReadBool(dest *bool) {
	b, err := r.ReadByte()
	if err != nil {
		return
	}
	switch b {
	case 0:
		*dest = false
	case 1:
		*dest = true
	default:
		r.setError(fmt.Errorf("%w: bool byte 0x%02x", ErrInvalidData, b))
	}
}

func (r *Reader) ReadUint8(dest *uint8) {
	if b, err := r.ReadByte(); err == nil {
		*dest = b
	}
}

func (r *Reader) ReadInt8(dest *int8) {
	if b, err := r.ReadByte(); err == nil {
		*dest = int8(b)
	}
}

func (r *Reader) ReadUint16(dest *uint16) {
	if r.readFull(r.scratch[:2]) {
		*dest = r.order.Uint16(r.scratch[:2])
	}
}

func (r *Reader) ReadUint32(dest *uint32) {
	if r.readFull(r.scratch[:4]) {
		*dest = r.order.Uint32(r.scratch[:4])
	}
}

func (r *Reader) ReadUint64(dest *uint64) {
	if r.readFull(r.scratch[:8]) {
		*dest = r.order.Uint64(r.scratch[:8])
	}
}

func (r *Reader) ReadInt16(dest *int16) {
	if r.readFull(r.scratch[:2]) {
		*dest = int16(r.order.Uint16(r.scratch[:2]))
	}
}

func (r *Reader) ReadInt32(dest *int32) {
	if r.readFull(r.scratch[:4]) {
		*dest = int32(r.order.Uint32(r.scratch[:4]))
	}
}

func (r *Reader) ReadInt64(dest *int64) {
	if r.readFull(r.scratch[:8]) {
		*dest = int64(r.order.Uint64(r.scratch[:8]))
	}
}

func (r *Reader) ReadFloat32(dest *float32) {
	if r.readFull(r.scratch[:4]) {
		*dest = math.Float32frombits(r.order.Uint32(r.scratch[:4]))
	}
}

func (r *Reader) ReadFloat64(dest *float64) {
	if r.readFull(r.scratch[:8]) {
		*dest = math.Float64frombits(r.order.Uint64(r.scratch[:8]))
	}
}
