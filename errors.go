package pipe

import (
	"errors"
	"fmt"
)

var (
	// ErrNilIO indicates that NewReader/NewWriter was called with an nil interface
	ErrNilIO = errors.New("pipe: NewReader/NewWriter called with a nil io.Reader/io.Writer")

	// ErrUnsupportedType indicates that a codec cannot represent the given Go type.
	ErrUnsupportedType = errors.New("pipe: unsupported type")

	// ErrInvalidData indicates that decoded bytes do not form a valid value,
	// e.g. a bool byte other than 0 or 1, a bad option tag or invalid UTF-8.
	ErrInvalidData = errors.New("pipe: invalid data")

	// ErrInvalidWrite indicates that an io.Writer returned an invalid (negative) count from Write.
	ErrInvalidWrite = errors.New("pipe: writer returned invalid count from Write")

	// ErrTrailingData indicates that bytes remained after the codec decoded a value.
	ErrTrailingData = errors.New("pipe: trailing data found after decoding")

	// ErrCodec wraps a failure of the value codec inside a pipe. The pipe hands the
	// codec exactly the bytes it produced, so this means an incompatible codec or
	// corrupted input and is fatal for the pipe.
	ErrCodec = errors.New("pipe: codec failure")

	// ErrCorrupt indicates a framing violation: a bad length prefix, a non-zero
	// sentinel byte or a payload the codec did not fully consume.
	ErrCorrupt = errors.New("pipe: corrupt frame")

	// ErrUnavailable indicates that a push/pull/empty callable was invoked while
	// the operation was not available, or invoked twice.
	ErrUnavailable = errors.New("pipe: operation not available")

	// ErrTypeMismatch indicates that a Deserializer was pulled as a type other
	// than the one pinned for the value in progress.
	ErrTypeMismatch = errors.New("pipe: pulled type does not match pinned type")

	// ErrNotEmpty indicates that a pipe was closed while a value was in flight.
	// Call Empty first to discard it.
	ErrNotEmpty = errors.New("pipe: closed while not empty")

	// ErrClosed indicates use of a pipe after Close.
	ErrClosed = errors.New("pipe: use of closed pipe")

	// ErrBroken indicates use of a pipe after a fatal failure escaped one of its operations.
	ErrBroken = errors.New("pipe: use of broken pipe")

	// ErrProtocol indicates that a coroutine received a message that is illegal
	// in its current state. It always signals a bug in the caller or the pipe.
	ErrProtocol = errors.New("pipe: coroutine protocol violation")
)

// errTerminated and errInterrupted are handed to a codec running inside a
// fiber when the driver terminates or interrupts the value it is working on.
var (
	errTerminated  = errors.New("pipe: value terminated")
	errInterrupted = errors.New("pipe: value interrupted")
)

// fatal panics with err wrapped in kind.
func fatal(kind error, format string, args ...any) {
	panic(fmt.Errorf("%w: "+format, append([]any{kind}, args...)...))
}
