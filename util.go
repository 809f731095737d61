package pipe

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

var (
	BE = binary.BigEndian
	LE = binary.LittleEndian
	// Order is the default binary order.
	Order = LE
)

const BUFFER_SIZE = 4096

// sentinel is the byte that stands in for a value whose encoding is empty.
const sentinel byte = 0

// wordSize is the width of the eager frame's length prefix. It is fixed so
// that 32-bit and 64-bit hosts share a wire format.
const wordSize = 8

// checkedLen converts a decoded length into an int, rejecting values that
// cannot index a Go slice.
func checkedLen[T constraints.Integer](n T) (int, error) {
	if n < 0 || uint64(n) > math.MaxInt {
		return 0, fmt.Errorf("%w: length %d out of range", ErrInvalidData, n)
	}
	return int(n), nil
}

// initialCap bounds the capacity reserved up front for n decoded elements,
// so a corrupt length cannot trigger a huge allocation before any data arrives.
func initialCap(n, limit int) int {
	return min(n, limit)
}
