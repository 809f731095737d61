package pipe

import (
	"fmt"
	"math"
)

// A frame is how the eager backend carries one value:
//
//	[length: u64 little endian][payload: length bytes]
//
// A value that encodes to nothing is carried as the single sentinel byte, so
// a frame never declares length 0.

// appendFrame appends the frame of v to dst.
func appendFrame[T any](dst []byte, c Codec[T], v T) ([]byte, error) {
	start := len(dst)
	dst = append(dst, make([]byte, wordSize)...)
	w := NewBytesWriter(dst)
	if err := c.Encode(w, v); err != nil {
		return w.B[:start], err
	}
	dst = w.B
	if len(dst) == start+wordSize {
		dst = append(dst, sentinel)
	}
	LE.PutUint64(dst[start:start+wordSize], uint64(len(dst)-start-wordSize))
	return dst, nil
}

// frameLength parses a length prefix.
func frameLength(prefix []byte) (int, error) {
	n, err := checkedLen(LE.Uint64(prefix[:wordSize]))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: zero length prefix", ErrCorrupt)
	}
	// The whole frame, prefix included, must be addressable.
	if n > math.MaxInt-wordSize {
		return 0, fmt.Errorf("%w: length prefix %d too large", ErrCorrupt, n)
	}
	return n, nil
}

// decodeFrame decodes the payload of one frame. The codec must consume all of
// it, or none of it when the payload is the sentinel.
func decodeFrame[T any](c Codec[T], payload []byte) (T, error) {
	v, n, err := Unmarshal(c, payload)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrCodec, err)
	}
	switch {
	case n == 0 && (len(payload) != 1 || payload[0] != sentinel):
		var zero T
		return zero, fmt.Errorf("%w: empty value carried as % x", ErrCorrupt, payload)
	case n > 0 && n < len(payload):
		var zero T
		return zero, fmt.Errorf("%w: %d of %d payload bytes consumed", ErrCorrupt, n, len(payload))
	}
	return v, nil
}
