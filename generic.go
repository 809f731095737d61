package pipe

import (
	"fmt"
)

// Marshal appends the encoding of v to dst using c.
func Marshal[T any](c Codec[T], dst []byte, v T) ([]byte, error) {
	if s, ok := c.(Sizer); ok && cap(dst)-len(dst) < s.Size() {
		grown := make([]byte, len(dst), len(dst)+s.Size())
		copy(grown, dst)
		dst = grown
	}
	w := NewBytesWriter(dst)
	if err := c.Encode(w, v); err != nil {
		return w.Bytes(), err
	}
	return w.Bytes(), nil
}

// Unmarshal decodes one value from data using c and reports how many bytes
// the codec consumed.
func Unmarshal[T any](c Codec[T], data []byte) (T, int, error) {
	r := NewBytesReader(data)
	v, err := c.Decode(r)
	return v, r.Len(), err
}

// UnmarshalExact decodes one value from data and fails unless the codec
// consumed all of it.
func UnmarshalExact[T any](c Codec[T], data []byte) (T, error) {
	v, n, err := Unmarshal(c, data)
	if err != nil {
		return v, err
	}
	if n < len(data) {
		// Ensure no unexpected trailing data remains.
		// This prevents parsing ambiguous or potentially malicious payloads.
		var zero T
		return zero, fmt.Errorf("%w: %d of %d bytes consumed", ErrTrailingData, n, len(data))
	}
	return v, nil
}
