package pcq

import (
	"go.uber.org/zap"

	"github.com/wippyai/pcq/internal/ring"
)

// View is the part of a transaction view that size estimates need.
type View interface {
	// MinSizeBytes returns the room a run of n raw bytes needs, which is
	// the size of a segment handle when n would be promoted.
	MinSizeBytes(n int) int
	// Status returns the sticky transaction status.
	Status() Status
}

// ProducerView writes one transaction into a ring without publishing it.
//
// The view advances the caller's write cursor as operations succeed. Once
// any operation fails, the status sticks and every later call returns it
// without touching the ring. The caller publishes the cursor only when
// Status reports Success; bytes written past the published cursor are
// never seen by the consumer, so a failed transaction needs no rollback.
//
// A ProducerView is not safe for concurrent use.
type ProducerView struct {
	ring     []byte
	shm      SharedMemory
	write    *int
	read     int
	status   Status
	segments []SegmentID
}

// NewProducerView binds a view to ring storage, the consumer's last
// published read cursor and the producer's mutable write cursor. The ring
// capacity is len(ring).
func NewProducerView(ring []byte, shm SharedMemory, read int, write *int) *ProducerView {
	return &ProducerView{
		ring:  ring,
		shm:   shm,
		read:  read,
		write: write,
	}
}

// Write copies p into the ring, or into a shared memory segment whose
// handle is written instead when p is large enough to be promoted.
// p must not be empty.
func (v *ProducerView) Write(p []byte) Status {
	if len(p) == 0 {
		panic("pcq: zero-length write")
	}
	if v.status != Success {
		return v.status
	}

	if v.shm != nil && v.shm.NeedsSharedMemory(len(p)) {
		seg, st := v.shm.AllocSegment(p)
		if st != Success {
			return v.Fail(st)
		}
		h := Shmem{seg: seg}
		if st := WriteWith[Shmem](v, shmemTraits{}, &h); st != Success {
			h.Close()
			return st
		}
		return Success
	}

	if !ring.WriteObject(v.ring, v.read, v.write, p) {
		return v.Fail(NotReady)
	}
	return Success
}

// MinSizeBytes implements View.
func (v *ProducerView) MinSizeBytes(n int) int {
	return minSizeBytes(v, v.shm, n)
}

// Status returns the sticky transaction status.
func (v *ProducerView) Status() Status {
	return v.status
}

// Fail records st as the transaction status unless a failure is already
// recorded, and returns the status now in effect. Trait implementations
// call it to report failures that do not come from the ring itself.
func (v *ProducerView) Fail(st Status) Status {
	if v.status == Success && st != Success {
		v.status = st
		Logger().Debug("producer view failed",
			zap.Stringer("status", st),
			zap.Int("write", *v.write),
			zap.Int("read", v.read))
	}
	return v.status
}

// Cursor returns the current, unpublished write cursor.
func (v *ProducerView) Cursor() int {
	return *v.write
}

// Capacity returns the ring capacity in bytes.
func (v *ProducerView) Capacity() int {
	return len(v.ring)
}

// Segments returns the ids of the segments this transaction put on the
// wire. If the transaction is abandoned, the queue retires them.
func (v *ProducerView) Segments() []SegmentID {
	return v.segments
}

// ConsumerView reads one transaction out of a ring without publishing the
// new read cursor. Failure handling mirrors ProducerView.
//
// A ConsumerView is not safe for concurrent use.
type ConsumerView struct {
	ring     []byte
	shm      SharedMemory
	read     *int
	write    int
	status   Status
	segments []SegmentID
}

// NewConsumerView binds a view to ring storage, the consumer's mutable read
// cursor and the producer's last published write cursor.
func NewConsumerView(ring []byte, shm SharedMemory, read *int, write int) *ConsumerView {
	return &ConsumerView{
		ring:  ring,
		shm:   shm,
		read:  read,
		write: write,
	}
}

// Read fills dst from the ring, or from the shared memory segment whose
// handle was written in place of a promoted payload. dst must not be empty.
func (v *ConsumerView) Read(dst []byte) Status {
	return v.readN(dst, len(dst))
}

// Skip consumes n bytes without materializing them.
func (v *ConsumerView) Skip(n int) Status {
	return v.readN(nil, n)
}

func (v *ConsumerView) readN(dst []byte, n int) Status {
	if n <= 0 {
		panic("pcq: zero-length read")
	}
	if v.status != Success {
		return v.status
	}

	if v.shm != nil && v.shm.NeedsSharedMemory(n) {
		var h Shmem
		if st := ReadWith[Shmem](v, shmemTraits{}, &h); st != Success {
			return st
		}
		defer h.Close()

		data := h.Bytes()
		if len(data) != n {
			Logger().Warn("segment size mismatch",
				zap.Uint64("segment", uint64(h.ID())),
				zap.Int("size", len(data)),
				zap.Int("want", n))
			return v.Fail(FatalError)
		}
		if dst != nil {
			copy(dst, data)
		}
		return Success
	}

	if !ring.ReadObject(v.ring, v.read, v.write, dst, n) {
		return v.Fail(NotReady)
	}
	return Success
}

// MinSizeBytes implements View.
func (v *ConsumerView) MinSizeBytes(n int) int {
	return minSizeBytes(v, v.shm, n)
}

// Status returns the sticky transaction status.
func (v *ConsumerView) Status() Status {
	return v.status
}

// Fail records st as the transaction status unless a failure is already
// recorded, and returns the status now in effect.
func (v *ConsumerView) Fail(st Status) Status {
	if v.status == Success && st != Success {
		v.status = st
		Logger().Debug("consumer view failed",
			zap.Stringer("status", st),
			zap.Int("read", *v.read),
			zap.Int("write", v.write))
	}
	return v.status
}

// Cursor returns the current, unpublished read cursor.
func (v *ConsumerView) Cursor() int {
	return *v.read
}

// Capacity returns the ring capacity in bytes.
func (v *ConsumerView) Capacity() int {
	return len(v.ring)
}

// Segments returns the ids of the segments this transaction resolved.
// Once the transaction is committed, the queue retires them.
func (v *ConsumerView) Segments() []SegmentID {
	return v.segments
}

func (v *ConsumerView) lookupSegment(id SegmentID) Segment {
	if v.shm == nil {
		return nil
	}
	seg := v.shm.LookupSegment(id)
	if seg != nil {
		v.segments = append(v.segments, id)
	}
	return seg
}

func minSizeBytes(view View, shm SharedMemory, n int) int {
	if shm != nil && shm.NeedsSharedMemory(n) {
		return shmemTraits{}.MinSize(view, nil)
	}
	return n
}
