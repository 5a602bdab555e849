package pcq

// SegmentID identifies a shared memory segment to both endpoints.
type SegmentID uint64

// Segment is a mapped shared memory region used for payloads that are too
// large to travel inline through the ring.
type Segment interface {
	ID() SegmentID
	// Bytes returns the mapped payload. Its length is the payload size.
	Bytes() []byte
	// RevokeRights drops this endpoint's write access.
	RevokeRights() error
	// Forget hands ownership to the wire; the local endpoint stops
	// tracking the segment without destroying it.
	Forget()
	// Release drops this endpoint's reference. A segment nobody owns or
	// references is destroyed.
	Release()
}

// SharedMemory is the transport strategy a view is constructed with.
// A nil SharedMemory disables promotion.
type SharedMemory interface {
	// NeedsSharedMemory reports whether a run of n bytes is moved through
	// a segment instead of the ring.
	NeedsSharedMemory(n int) bool
	// AllocSegment creates a segment holding a copy of data.
	AllocSegment(data []byte) (Segment, Status)
	// LookupSegment resolves an id written by the producer. It returns nil
	// when the id is unknown.
	LookupSegment(id SegmentID) Segment
}

// SegmentRetirer is optionally implemented by a SharedMemory. The queue
// retires every segment a consumer transaction resolved once it commits,
// and every segment a producer transaction wrote once it is abandoned. A
// retired segment is no longer held by the wire and is destroyed once its
// last borrowed reference is released.
type SegmentRetirer interface {
	RetireSegment(id SegmentID)
}
