package queue

import (
	"sync/atomic"
	"unsafe"
)

const (
	readOffset  = 0
	writeOffset = 64
	// HeaderSize is the room the cursors take at the start of a region.
	HeaderSize = 128
)

// RegionSize returns the region size a ring of capacity bytes needs.
func RegionSize(capacity int) int {
	return HeaderSize + capacity
}

// cursor is a ring offset published through region memory.
type cursor struct {
	p *uint64
}

func cursorAt(buf []byte, off int) cursor {
	return cursor{p: (*uint64)(unsafe.Pointer(&buf[off]))}
}

func (c cursor) load() int {
	return int(atomic.LoadUint64(c.p))
}

func (c cursor) store(v int) {
	atomic.StoreUint64(c.p, uint64(v))
}
