// Package shm provides the shared memory transport behind pcq's payload
// promotion.
//
// A Manager decides which byte runs are too large to travel inline, maps
// a segment for each of them and tracks every segment in a table until it
// is destroyed:
//
//	mgr, err := shm.NewManager(shm.MemfdBackend(), 4096)
//	if err != nil {
//	    return err
//	}
//	defer mgr.Close()
//
//	pv := pcq.NewProducerView(ring, mgr, read, &write)
//
// # Segment Lifecycle
//
// A segment moves through three holders:
//
//	owner  - the handle returned by AllocSegment
//	wire   - after Forget, the id written into the ring
//	borrow - every handle returned by LookupSegment
//
// Forget hands ownership from the owner to the wire. RetireSegment, called
// by the queue once the consumer commits, takes it off the wire. A segment
// with no owner, not on the wire and no outstanding borrows is unmapped.
//
// Segment ids carry a generation, so an id that outlives its segment never
// resolves to a later segment reusing the same slot.
//
// # Backends
//
// HeapBackend maps segments into the Go heap and is always available.
// MemfdBackend maps anonymous memory files on Linux and enforces
// RevokeRights with mprotect.
package shm
