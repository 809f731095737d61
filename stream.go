package pipe

import (
	"fmt"
	"io"
)

// Read pulls the bytes that are ready into p. It returns io.EOF when no byte
// is ready, which happens at the end of every value.
//
// Unlike most readers, io.EOF is not final: after the next Push, Read returns
// that value's bytes. Each call to io.ReadAll or io.Copy therefore drains one
// value. Do not wrap a Serializer in a reader that remembers io.EOF, such as
// bufio.Reader, if more values follow; use WriteTo or Pull instead.
func (s *Serializer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := 0
	for n < len(p) {
		pull, ok := s.Pull()
		if !ok {
			break
		}
		p[n] = pull()
		n++
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// WriteTo implements the io.WriterTo interface. It writes every byte that is
// ready to w in chunks and stops when the Serializer has no byte ready.
// Bytes of a chunk that w failed to take are lost with the error.
func (s *Serializer) WriteTo(w io.Writer) (n int64, err error) {
	if w == nil {
		return 0, ErrNilIO
	}
	bufPtr := bufPool.Get().(*[]byte)
	defer bufPool.Put(bufPtr)
	buf := *bufPtr

	for {
		// 1. Pull a chunk from the pipe.
		read, er := s.Read(buf)
		if read > 0 {
			// 2. Write the chunk to the destination writer.
			written, ew := w.Write(buf[0:read])
			if written < 0 || written > read {
				return n, ErrInvalidWrite
			}

			// 3. Report the number of bytes successfully written.
			n += int64(written)
			if ew != nil {
				return n, ew
			}
			if read != written {
				return n, io.ErrShortWrite
			}
		}
		if er != nil {
			return n, nil // io.EOF: no byte ready.
		}
	}
}

// Write pushes the bytes of p into the pinned value until it is complete. If
// the value completes before p is used up it returns the bytes taken and
// io.ErrShortWrite; the rest belong to the next value.
func (d *Deserializer) Write(p []byte) (int, error) {
	for i, b := range p {
		push, ok := d.Push()
		if !ok {
			if d.pending {
				return i, io.ErrShortWrite
			}
			return i, fmt.Errorf("%w: no type pinned", ErrUnavailable)
		}
		push(b)
	}
	return len(p), nil
}

// Encode pushes v with the Binary codec and writes all of its bytes to w.
func Encode[T any](s *Serializer, w io.Writer, v T) error {
	return EncodeWith(s, w, Binary[T](), v)
}

// EncodeWith pushes v with c and writes all of its bytes to w. The
// Serializer must be idle.
func EncodeWith[T any](s *Serializer, w io.Writer, c Codec[T], v T) error {
	if w == nil {
		return ErrNilIO
	}
	push, ok := PushWith(s, c)
	if !ok {
		return fmt.Errorf("%w: serializer is not idle", ErrUnavailable)
	}
	push(v)
	_, err := s.WriteTo(w)
	return err
}

// Decode reads one T, decoded with the Binary codec, from r.
func Decode[T any](d *Deserializer, r io.Reader) (T, error) {
	return DecodeWith(d, r, Binary[T]())
}

// DecodeWith pins T on d and feeds it bytes from r until the value is
// complete. It reads one byte at a time and never past the value.
//
// If r ends before the first byte, DecodeWith returns io.EOF and T stays
// pinned. If r fails after some bytes were fed, the partial value is
// discarded and the error returned; a premature end becomes
// io.ErrUnexpectedEOF.
func DecodeWith[T any](d *Deserializer, r io.Reader, c Codec[T]) (T, error) {
	var zero T
	if pull, ok := PullWith(d, c); ok {
		return pull(), nil
	}
	br, err := NewReader(r)
	if err != nil {
		return zero, err
	}
	for {
		push, ok := d.Push()
		if !ok {
			break
		}
		b, err := br.ReadByte()
		if err != nil {
			if empty, ok := d.Empty(); ok {
				empty()
			}
			return zero, err
		}
		push(b)
	}
	pull, ok := PullWith(d, c)
	if !ok {
		return zero, fmt.Errorf("%w: deserializer has no value", ErrUnavailable)
	}
	return pull(), nil
}
