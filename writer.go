package pipe

import (
	"encoding/binary"
	"io"
	"math"
)

// Writer simplifies writing binary data and tracks the first error that occurs.
// After an error, all subsequent write operations become no-ops.
//
// Unlike a bufio.Writer it never holds bytes back: every byte is handed to the
// underlying writer as soon as it is produced, which is what lets a fiber
// suspend on each one.
type Writer struct {
	w       io.Writer
	bw      io.ByteWriter // fast path when w also writes single bytes
	count   int64         // total bytes written
	err     error         // first error encountered. Subsequent writes become no-ops.
	order   binary.ByteOrder
	scratch [8]byte
}

// NewWriter creates a new Writer over w.
func NewWriter(w io.Writer) (*Writer, error) {
	if w == nil {
		return nil, ErrNilIO
	}
	// Reuse the underlying writer if it's already a Writer.
	if pw, ok := w.(*Writer); ok {
		w = pw.w
	}
	bw, _ := w.(io.ByteWriter)
	return &Writer{w: w, bw: bw, order: Order}, nil
}

// WithByteOrder allows setting a custom byte order and returns
// the configured for chaining.
func (w *Writer) WithByteOrder(order binary.ByteOrder) *Writer {
	w.order = order
	return w
}

// Write implements the io.Writer interface.
func (w *Writer) Write(buf []byte) (int, error) {
	if len(buf) == 0 || w.err != nil {
		return 0, w.err
	}
	n, err := w.w.Write(buf)
	if n < 0 {
		n, err = 0, ErrInvalidWrite
	} else if n < len(buf) && err == nil {
		err = io.ErrShortWrite
	}
	w.count += int64(n)
	w.setError(err)
	return n, w.err
}

// WriteString implements the io.StringWriter interface.
func (w *Writer) WriteString(str string) (int, error) {
	if str == "" || w.err != nil {
		return 0, w.err
	}
	if sw, ok := w.w.(io.StringWriter); ok {
		n, err := sw.WriteString(str)
		w.count += int64(n)
		w.setError(err)
		return n, w.err
	}
	return w.Write([]byte(str))
}

func (w *Writer) Count() int64 { return w.count }
func (w *Writer) Err() error   { return w.err }

// setError records the first non-nil error.
// This preserves the root cause of a failure chain instead of a later,
// less relevant error.
func (w *Writer) setError(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

// Result returns the final count and error state.
func (w *Writer) Result() (int64, error) {
	return w.count, w.err
}

// WriteFrom lets an io.WriterTo encode itself into the underlying writer.
func (w *Writer) WriteFrom(wt io.WriterTo) {
	if wt == nil || w.err != nil {
		return
	}
	n, err := wt.WriteTo(w.w)
	w.count += n
	w.setError(err)
}

// WriteBytes writes a byte slice.
func (w *Writer) WriteBytes(buf []byte) {
	if w.err != nil {
		return
	}
	_, _ = w.Write(buf)
}

// WriteLen writes a length prefix as a u64.
func (w *Writer) WriteLen(n int) {
	w.WriteUint64(uint64(n))
}

// --- Primitive Write Operations ---

func (w *Writer) WriteBool(v bool) {
	if v {
		_ = w.WriteByte(1)
	} else {
		_ = w.WriteByte(0)
	}
}

func (w *Writer) WriteByte(v byte) error {
	if w.err != nil {
		return w.err
	}
	if w.bw == nil {
		w.scratch[0] = v
		_, err := w.Write(w.scratch[:1])
		return err
	}
	err := w.bw.WriteByte(v)
	if err == nil {
		w.count++
	} else {
		w.err = err
	}
	return err
}

func (w *Writer) WriteUint8(v uint8) { _ = w.WriteByte(v) }
func (w *Writer) WriteInt8(v int8)   { _ = w.WriteByte(uint8(v)) }

func (w *Writer) WriteUint16(v uint16) {
	if w.err != nil {
		return
	}
	w.order.PutUint16(w.scratch[:2], v)
	_, _ = w.Write(w.scratch[:2])
}

func (w *Writer) WriteUint32(v uint32) {
	if w.err != nil {
		return
	}
	w.order.PutUint32(w.scratch[:4], v)
	_, _ = w.Write(w.scratch[:4])
}

func (w *Writer) WriteUint64(v uint64) {
	if w.err != nil {
		return
	}
	w.order.PutUint64(w.scratch[:8], v)
	_, _ = w.Write(w.scratch[:8])
}

func (w *Writer) WriteInt16(v int16) { w.WriteUint16(uint16(v)) }
func (w *Writer) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }
func (w *Writer) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

func (w *Writer) WriteFloat32(v float32) { w.WriteUint32(math.Float32bits(v)) }
func (w *Writer) WriteFloat64(v float64) { w.WriteUint64(math.Float64bits(v)) }
