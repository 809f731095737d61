package pipe

import (
	"sync"
)

// framePool recycles the buffers eager backends frame values into. A closed
// pipe gives its buffer back so the next pipe does not start from scratch.
var framePool = sync.Pool{
	New: func() any {
		// A 4KB default is chosen to avoid re-allocations for common value sizes.
		b := make([]byte, 0, BUFFER_SIZE)
		return &b
	},
}

func getFrame() []byte {
	return (*framePool.Get().(*[]byte))[:0]
}

func putFrame(b []byte) {
	if b == nil || cap(b) > 1<<20 {
		return // don't pin very large frames in the pool
	}
	b = b[:0]
	framePool.Put(&b)
}

const CHUNK_SIZE = 32 * 1024

// We need a buffer to drain chunks into. 32KB is a common default size used by io.Copy.
var bufPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, CHUNK_SIZE)
		return &b
	},
}
