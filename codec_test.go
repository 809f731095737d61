package pipe

import (
	"bytes"
	"encoding/binary"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// --- Mocks and Helpers ---

// A simple fixed-size struct for testing codec implementations.
type mockPayload struct {
	ID   uint32
	Data [4]byte
}

// mockSelf encodes itself, so Binary hands it the stream.
type mockSelf struct {
	mockPayload
}

func (m *mockSelf) WriteTo(w io.Writer) (int64, error) {
	if err := binary.Write(w, Order, &m.mockPayload); err != nil {
		return 0, err
	}
	return 8, nil
}

func (m *mockSelf) ReadFrom(r io.Reader) (int64, error) {
	if err := binary.Read(r, Order, &m.mockPayload); err != nil {
		return 0, err
	}
	return 8, nil
}

// limitWriter accepts at most len(buf) bytes and silently drops the rest.
type limitWriter struct {
	buf []byte
	n   int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	n := copy(w.buf[w.n:], p)
	w.n += n
	return n, nil
}

// --- Writer Test Suite ---

type WriterTestSuite struct {
	suite.Suite
	buf    *bytes.Buffer
	writer *Writer
}

// SetupTest runs before each test in the suite, ensuring a clean state.
func (s *WriterTestSuite) SetupTest() {
	s.buf = &bytes.Buffer{}
	s.writer, _ = NewWriter(s.buf)
}

func (s *WriterTestSuite) TestConstructors() {
	s.T().Run("ErrorOnNilWriter", func(t *testing.T) {
		_, err := NewWriter(nil)
		assert.ErrorIs(t, err, ErrNilIO)
	})
}

func (s *WriterTestSuite) TestBasicWrites() {
	self := &mockSelf{mockPayload{ID: 0xDEADBEEF, Data: [4]byte{1, 2, 3, 4}}}

	s.writer.WriteUint8(0xAA)
	s.writer.WriteUint16(0xBBCC)
	s.writer.WriteUint32(0xDDEEFF00)
	s.writer.WriteUint64(0x0102030405060708)
	s.writer.WriteBytes([]byte{5, 6, 7})
	s.writer.WriteBool(true)
	s.writer.WriteFrom(self)

	n, err := s.writer.Result()
	s.Require().NoError(err)
	s.Assert().EqualValues(1+2+4+8+3+1+8, n)
	s.Assert().EqualValues(s.buf.Len(), s.writer.Count())

	expected := []byte{
		0xAA,       // WriteUint8
		0xCC, 0xBB, // WriteUint16 (Little Endian)
		0x00, 0xFF, 0xEE, 0xDD, // WriteUint32 (Little Endian)
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01, // WriteUint64 (Little Endian)
		5, 6, 7, // WriteBytes
		1,                                  // WriteBool
		0xEF, 0xBE, 0xAD, 0xDE, 1, 2, 3, 4, // WriteFrom(self)
	}
	s.Assert().Equal(expected, s.buf.Bytes())
}

func (s *WriterTestSuite) TestByteOrder() {
	s.writer.WithByteOrder(BE).WriteUint32(0x01020304)
	s.writer.WriteFloat64(1.5)
	s.Require().NoError(s.writer.Err())
	s.Assert().Equal([]byte{1, 2, 3, 4, 0x3F, 0xF8, 0, 0, 0, 0, 0, 0}, s.buf.Bytes())
}

func (s *WriterTestSuite) TestErrorHandling() {
	s.T().Run("ShortWriteError", func(t *testing.T) {
		lw := &limitWriter{buf: make([]byte, 5)}
		writer, _ := NewWriter(lw)

		writer.WriteUint32(0x11223344) // Fits.
		writer.WriteUint32(0xAABBCCDD) // Only one byte fits.

		_, err := writer.Result()
		require.Error(t, err)
		assert.ErrorIs(t, err, io.ErrShortWrite)
		assert.EqualValues(t, 5, writer.Count())
	})

	s.T().Run("WriteAfterErrorIsNoOp", func(t *testing.T) {
		lw := &limitWriter{buf: make([]byte, 5)}
		writer, _ := NewWriter(lw)

		writer.WriteUint32(0x11223344)
		writer.WriteUint32(0xAABBCCDD)

		firstErr := writer.Err()
		require.ErrorIs(t, firstErr, io.ErrShortWrite)

		// This subsequent write should be a no-op because an error state is set.
		writer.WriteUint8(0xFF)
		assert.Equal(t, firstErr, writer.Err(), "The latched error should not change")

		expected := []byte{0x44, 0x33, 0x22, 0x11, 0xDD}
		assert.Equal(t, expected, lw.buf)
	})
}

// TestWriter runs the WriterTestSuite.
func TestWriter(t *testing.T) {
	suite.Run(t, new(WriterTestSuite))
}

// --- Reader Test Suite ---

type ReaderTestSuite struct {
	suite.Suite
}

func (s *ReaderTestSuite) TestConstructors() {
	s.T().Run("ErrorOnNilReader", func(t *testing.T) {
		_, err := NewReader(nil)
		assert.ErrorIs(t, err, ErrNilIO)
	})
}

func (s *ReaderTestSuite) TestSuccessfulReads() {
	data := []byte{
		0xAA,       // uint8
		0xCC, 0xBB, // uint16
		0x00, 0xFF, 0xEE, 0xDD, // uint32
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01, // uint64
		0x11, 0x22, 0x33, // raw bytes
	}
	r, _ := NewReader(bytes.NewReader(data))

	var v8 uint8
	var v16 uint16
	var v32 uint32
	var v64 uint64
	r.ReadUint8(&v8)
	r.ReadUint16(&v16)
	r.ReadUint32(&v32)
	r.ReadUint64(&v64)
	read := r.ReadBytes(3)

	s.Require().NoError(r.Err())
	s.Assert().Equal(uint8(0xAA), v8)
	s.Assert().Equal(uint16(0xBBCC), v16)
	s.Assert().Equal(uint32(0xDDEEFF00), v32)
	s.Assert().Equal(uint64(0x0102030405060708), v64)
	s.Assert().Equal([]byte{0x11, 0x22, 0x33}, read)
	s.Assert().EqualValues(len(data), r.Count())

	// The next read should result in a clean EOF.
	r.Read(make([]byte, 1))
	s.Assert().ErrorIs(r.Err(), io.EOF)
	s.Assert().True(r.IsEOF())
}

func (s *ReaderTestSuite) TestNoReadAhead() {
	src := bytes.NewReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05})
	r, _ := NewReader(src)

	var v16 uint16
	r.ReadUint16(&v16)
	s.Require().NoError(r.Err())
	s.Assert().Equal(3, src.Len(), "Reader must leave the rest of the source untouched")
}

func (s *ReaderTestSuite) TestErrorHandling() {
	s.T().Run("ReadPastEOF", func(t *testing.T) {
		data := []byte{0x01, 0x02, 0x03}
		r, _ := NewReader(bytes.NewReader(data))
		var v32 uint32
		r.ReadUint32(&v32) // Attempt to read 4 bytes from a 3-byte source.

		require.Error(t, r.Err())
		assert.ErrorIs(t, r.Err(), io.ErrUnexpectedEOF)
		assert.False(t, r.IsEOF(), "ErrUnexpectedEOF should not be considered a clean EOF")
	})

	s.T().Run("EOFAfterPriorBytesIsUnexpected", func(t *testing.T) {
		r, _ := NewReader(bytes.NewReader([]byte{0x01}))
		_, err := r.ReadByte()
		require.NoError(t, err)
		_, err = r.ReadByte()
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	s.T().Run("ReadAfterErrorIsNoOp", func(t *testing.T) {
		data := []byte{0x01, 0x02, 0x03}
		r, _ := NewReader(bytes.NewReader(data))
		var v32 uint32
		var v8 uint8

		r.ReadUint32(&v32) // This will trigger and latch the error.
		firstErr := r.Err()
		require.Error(t, firstErr)

		r.ReadUint8(&v8) // This read should not happen.
		assert.Equal(t, firstErr, r.Err(), "The latched error should not change")
		assert.Equal(t, uint8(0), v8, "Destination variable should be unchanged after an error")
	})

	s.T().Run("InvalidBool", func(t *testing.T) {
		r, _ := NewReader(bytes.NewReader([]byte{2}))
		var b bool
		r.ReadBool(&b)
		assert.ErrorIs(t, r.Err(), ErrInvalidData)
	})

	s.T().Run("InvalidUTF8", func(t *testing.T) {
		r, _ := NewReader(bytes.NewReader([]byte{0xff, 0xfe}))
		assert.Empty(t, r.ReadString(2))
		assert.ErrorIs(t, r.Err(), ErrInvalidData)
	})

	s.T().Run("HugeLengthFailsOnMissingData", func(t *testing.T) {
		data := binary.LittleEndian.AppendUint64(nil, 1<<40)
		r, _ := NewReader(bytes.NewReader(append(data, 1, 2, 3)))
		n := r.ReadLen()
		require.NoError(t, r.Err())
		assert.Nil(t, r.ReadBytes(n))
		assert.ErrorIs(t, r.Err(), io.ErrUnexpectedEOF)
	})
}

func (s *ReaderTestSuite) TestReadTo() {
	data := []byte{0xEF, 0xBE, 0xAD, 0xDE, 1, 2, 3, 4}
	r, _ := NewReader(bytes.NewReader(data))

	var self mockSelf
	r.ReadTo(&self)
	s.Require().NoError(r.Err())
	s.Assert().Equal(uint32(0xDEADBEEF), self.ID)
	s.Assert().Equal([4]byte{1, 2, 3, 4}, self.Data)
	s.Assert().EqualValues(len(data), r.Count())
}

// TestReader runs the ReaderTestSuite.
func TestReader(t *testing.T) {
	suite.Run(t, new(ReaderTestSuite))
}

// --- Standalone Codec Tests ---

func TestFixedCodec_SizeCache(t *testing.T) {
	c := Fixed[mockPayload]().(Sizer)
	expectedSize := 8 // uint32(4) + [4]byte(4)

	// The first call populates the cache.
	assert.Equal(t, expectedSize, c.Size())
	// The second call should hit the cache.
	assert.Equal(t, expectedSize, c.Size())

	// Verify the cache is shared globally.
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, expectedSize, Fixed[mockPayload]().(Sizer).Size())
		}()
	}
	wg.Wait()

	assert.Equal(t, -1, Fixed[[]byte]().(Sizer).Size())
	assert.Equal(t, -1, Fixed[string]().(Sizer).Size())
}

func TestFixedCodec_MatchesBinary(t *testing.T) {
	v := mockPayload{ID: 0xDEADBEEF, Data: [4]byte{1, 2, 3, 4}}

	fixed, err := Marshal(Fixed[mockPayload](), nil, v)
	require.NoError(t, err)
	generic, err := Marshal(Binary[mockPayload](), nil, v)
	require.NoError(t, err)
	assert.Equal(t, generic, fixed)

	got, err := UnmarshalExact(Fixed[mockPayload](), fixed)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestFixedCodec_Errors(t *testing.T) {
	t.Run("UnsupportedType", func(t *testing.T) {
		_, err := Marshal(Fixed[string](), nil, "x")
		assert.ErrorIs(t, err, ErrUnsupportedType)
		_, _, err = Unmarshal(Fixed[string](), []byte{1})
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("UnmarshalWithTruncatedData", func(t *testing.T) {
		data, _ := Marshal(Fixed[mockPayload](), nil, mockPayload{ID: 1})
		_, _, err := Unmarshal(Fixed[mockPayload](), data[:len(data)-1])
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("UnmarshalWithTrailingData", func(t *testing.T) {
		data, _ := Marshal(Fixed[mockPayload](), nil, mockPayload{ID: 1})
		_, err := UnmarshalExact(Fixed[mockPayload](), append(data, 0x01, 0x02, 0x03))
		assert.ErrorIs(t, err, ErrTrailingData)
	})
}

func TestMarshal_AppendsToDst(t *testing.T) {
	dst := []byte{0xAA}
	out, err := Marshal(Fixed[uint16](), dst, 0x0102)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0x02, 0x01}, out)

	v, n, err := Unmarshal(Fixed[uint16](), out[1:])
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0102), v)
	assert.Equal(t, 2, n)
}

func TestBytesReader(t *testing.T) {
	r := NewBytesReader([]byte{1, 2, 3})
	b, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(1), b)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 2, r.Available())

	buf := make([]byte, 4)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = r.Read(buf)
	assert.ErrorIs(t, err, io.EOF)

	r.Reset([]byte{9})
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 1, r.Available())
}
