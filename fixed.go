package pipe

import (
	"encoding/binary"
	"fmt"
	"io"
	"reflect"

	"github.com/puzpuzpuz/xsync/v4"
)

// sizeCache avoids the high performance cost of reflection in `binary.Size`
// on every call. Using a concurrent map makes it safe to share between pipes.
var sizeCache = xsync.NewMap[reflect.Type, int]()

// fixedCodec encodes fixed-size types with encoding/binary.
type fixedCodec[T any] struct {
	order binary.ByteOrder
}

// Fixed returns a Codec for any type T composed of fixed-size fields,
// eliminating reflection walks for simple data structures. Its layout matches
// Binary for the same types.
//
// Constraint: T MUST NOT contain variable-size fields like slices, maps,
// pointers or strings; Encode and Decode report ErrUnsupportedType for them.
func Fixed[T any]() Codec[T] {
	return fixedCodec[T]{order: Order}
}

var (
	_ Codec[struct{}] = fixedCodec[struct{}]{}
	_ Sizer           = fixedCodec[struct{}]{}
)

// Size returns the fixed size of T in bytes, or -1 if T is not fixed-size.
// The result is cached to avoid reflection overhead on subsequent calls.
func (c fixedCodec[T]) Size() int {
	t := reflect.TypeFor[T]()

	// Attempt to load from the concurrent-safe cache first for performance.
	if size, ok := sizeCache.Load(t); ok {
		return size
	}

	// If not cached, perform the expensive reflection-based calculation.
	// binary.Size accepts slices but their size depends on the value.
	size := -1
	if t.Kind() != reflect.Slice {
		var zero T
		size = binary.Size(&zero)
	}

	// Store the result for subsequent calls.
	sizeCache.Store(t, size)
	return size
}

// Encode writes v directly to the stream.
func (c fixedCodec[T]) Encode(w io.Writer, v T) error {
	if c.Size() < 0 {
		return fmt.Errorf("%w: %v is not fixed-size", ErrUnsupportedType, reflect.TypeFor[T]())
	}
	return binary.Write(w, c.order, &v)
}

// Decode reads exactly Size bytes from the stream.
func (c fixedCodec[T]) Decode(r io.Reader) (T, error) {
	var v T
	if c.Size() < 0 {
		return v, fmt.Errorf("%w: %v is not fixed-size", ErrUnsupportedType, reflect.TypeFor[T]())
	}
	if err := binary.Read(r, c.order, &v); err != nil {
		return v, err
	}
	return v, nil
}
