package pipe

import (
	"encoding/binary"
	"testing"
)

type BenchmarkPayload struct {
	ID      uint32
	Val1    uint64
	Val2    uint64
	Val3    uint64
	IsAlive bool
	Padding [3]byte
}

var benchPayload = BenchmarkPayload{ID: 1, Val1: 100}

func BenchmarkFixedMarshal(b *testing.B) {
	c := Fixed[BenchmarkPayload]()
	buf := make([]byte, 0, c.(Sizer).Size())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Marshal(c, buf[:0], benchPayload)
	}
}

func BenchmarkFixedUnmarshal(b *testing.B) {
	c := Fixed[BenchmarkPayload]()
	data, _ := Marshal(c, nil, benchPayload)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = UnmarshalExact(c, data)
	}
}

func BenchmarkBinaryMarshal(b *testing.B) {
	c := Binary[BenchmarkPayload]()
	buf := make([]byte, 0, 64)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Marshal(c, buf[:0], benchPayload)
	}
}

func BenchmarkBinaryUnmarshal(b *testing.B) {
	c := Binary[BenchmarkPayload]()
	data, _ := Marshal(c, nil, benchPayload)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = UnmarshalExact(c, data)
	}
}

// Baseline comparison using only binary.Write directly, to see overhead of the codecs.
func BenchmarkStandardBinaryWrite(b *testing.B) {
	buf := make([]byte, binary.Size(benchPayload))
	w := NewBytesWriter(buf)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Reset()
		_ = binary.Write(w, Order, &benchPayload)
	}
}

func benchmarkRoundTrip(b *testing.B, backend Backend) {
	s, d := newPipes(backend)
	defer s.Close()
	defer d.Close()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		push, _ := Push[BenchmarkPayload](s)
		push(benchPayload)
		Pull[BenchmarkPayload](d)
		for pull, ok := s.Pull(); ok; pull, ok = s.Pull() {
			feed, _ := d.Push()
			feed(pull())
		}
		take, _ := Pull[BenchmarkPayload](d)
		_ = take()
	}
}

func BenchmarkPipeEager(b *testing.B)       { benchmarkRoundTrip(b, Eager) }
func BenchmarkPipeSuspendable(b *testing.B) { benchmarkRoundTrip(b, Suspendable) }
