// Package pipe turns a binary value codec into an incremental byte pipe:
// push values into a Serializer and pull bytes out one at a time, or push
// bytes into a Deserializer and pull values out.
//
// Two backends implement the pipes. The eager backend frames a whole value
// into a buffer before serving it; the suspendable backend runs the codec on a
// coroutine that suspends on every byte, so memory stays bounded no matter how
// large the value is.
package pipe

import (
	"io"
)

// Codec encodes and decodes values of type T against a byte stream.
//
// A Codec used with a pipe must be deterministic and must read exactly the
// bytes it wrote: no read-ahead, no reliance on io.EOF to find the end of a
// value. Errors returned by the io.Writer/io.Reader must be propagated.
type Codec[T any] interface {
	// Encode writes the encoding of v to w.
	Encode(w io.Writer, v T) error
	// Decode reads one value from r.
	Decode(r io.Reader) (T, error)
}

// SelfCodec is implemented by types that encode themselves. The Binary codec
// hands such values their own stream instead of walking their fields.
// ReadFrom must consume exactly the bytes WriteTo produced.
type SelfCodec interface {
	// io.WriterTo provides efficient, stream-based writing.
	io.WriterTo // Method: WriteTo(writer io.Writer) (int64, error)
	// io.ReaderFrom provides efficient, stream-based reading.
	io.ReaderFrom // Method: ReadFrom(r io.Reader) (int64, error)
}

// Sizer is an interface for codecs that know the encoded size of their type
// up front. This is useful for pre-allocating buffers before encoding.
type Sizer interface {
	// Size returns the size of the type in bytes when binary encoded.
	Size() int
}
