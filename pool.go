package pcq

import (
	"bytes"
	"sync"
)

const (
	// Buffers grown past poolMaxCap by a large CBOR value are left to the GC.
	poolMaxCap  = 64 << 10
	poolInitCap = 256
)

// scratch buffer pool for opaque encodings
var bufPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, poolInitCap))
	},
}

func getBuf() *bytes.Buffer {
	return bufPool.Get().(*bytes.Buffer)
}

func putBuf(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > poolMaxCap {
		return
	}
	buf.Reset()
	bufPool.Put(buf)
}

// Grow the buffer to n bytes, reusing its storage, and return them.
func scratch(buf *bytes.Buffer, n int) []byte {
	buf.Reset()
	buf.Grow(n)
	return buf.AvailableBuffer()[:n]
}
