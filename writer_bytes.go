package pipe

// BytesWriter is an io.Writer that appends to a byte slice, growing it as needed.
// The eager backend frames values into one, reusing the slice across values.
type BytesWriter struct {
	B []byte // destination slice
}

// NewBytesWriter creates a new BytesWriter that appends after p's contents.
func NewBytesWriter(p []byte) *BytesWriter {
	return &BytesWriter{B: p}
}

// Write implements the io.Writer interface.
func (w *BytesWriter) Write(p []byte) (int, error) {
	w.B = append(w.B, p...)
	return len(p), nil
}

// WriteString implements the io.StringWriter interface for efficiency.
func (w *BytesWriter) WriteString(s string) (int, error) {
	w.B = append(w.B, s...)
	return len(s), nil
}

// WriteByte implements the io.ByteWriter interface for efficiency.
func (w *BytesWriter) WriteByte(c byte) error {
	w.B = append(w.B, c)
	return nil
}

// Reset allows the underlying byte slice to be reused.
func (w *BytesWriter) Reset() { w.B = w.B[:0] }

// Len returns the number of bytes held.
func (w *BytesWriter) Len() int { return len(w.B) }

// Bytes returns a slice view of the written data.
func (w *BytesWriter) Bytes() []byte { return w.B }
