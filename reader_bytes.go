package pipe

import "io"

// BytesReader is an io.Reader that reads from a byte slice and remembers how
// far it got, so a caller can tell exactly how many bytes a decoder consumed.
type BytesReader struct {
	B []byte // source slice
	N int    // current read position
}

// NewBytesReader creates a new BytesReader.
func NewBytesReader(b []byte) *BytesReader {
	return &BytesReader{B: b}
}

// Read implements the [io.Reader] interface.
func (r *BytesReader) Read(p []byte) (int, error) {
	if r.N >= len(r.B) {
		return 0, io.EOF
	}
	n := copy(p, r.B[r.N:])
	r.N += n
	return n, nil
}

// ReadByte implements the [io.ByteReader] interface.
func (r *BytesReader) ReadByte() (byte, error) {
	if r.N >= len(r.B) {
		return 0, io.EOF
	}
	b := r.B[r.N]
	r.N++
	return b, nil
}

// Reset allows the underlying byte slice to be reused.
func (r *BytesReader) Reset(b []byte) {
	r.B, r.N = b, 0
}

// Len returns the number of bytes read.
func (r *BytesReader) Len() int {
	return r.N
}

// Available returns the number of bytes available for reading.
func (r *BytesReader) Available() int {
	return max(len(r.B)-r.N, 0)
}
